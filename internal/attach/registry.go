package attach

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownKind = errors.New("unknown attachment kind")
	ErrEmptyRef    = errors.New("attachment ref must have kind and id")
)

// Ref типизированная ссылка на внешнюю сущность (событие, видео),
// к которой привязывается комната. Замена generic-связи content_type/object_id:
// допустимые виды перечислены в реестре, а не выводятся рефлексией.
type Ref struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Registry реестр известных видов сущностей
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]struct{}
}

func NewRegistry(kinds ...string) *Registry {
	r := &Registry{kinds: make(map[string]struct{})}
	for _, k := range kinds {
		r.Register(k)
	}
	return r
}

// Register добавляет вид сущности в реестр
func (r *Registry) Register(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = struct{}{}
}

func (r *Registry) Known(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[kind]
	return ok
}

// Validate проверяет, что ссылка заполнена и вид зарегистрирован
func (r *Registry) Validate(ref Ref) error {
	if ref.Kind == "" || ref.ID == "" {
		return ErrEmptyRef
	}
	if !r.Known(ref.Kind) {
		return fmt.Errorf("%w: %q", ErrUnknownKind, ref.Kind)
	}
	return nil
}
