package attach

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Validate(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry("event", "video")

	req.NoError(reg.Validate(Ref{Kind: "event", ID: "42"}))
	req.NoError(reg.Validate(Ref{Kind: "video", ID: "abc"}))

	req.ErrorIs(reg.Validate(Ref{Kind: "meetup", ID: "42"}), ErrUnknownKind)
	req.ErrorIs(reg.Validate(Ref{Kind: "event"}), ErrEmptyRef)
	req.ErrorIs(reg.Validate(Ref{ID: "42"}), ErrEmptyRef)
	req.ErrorIs(reg.Validate(Ref{}), ErrEmptyRef)
}

func TestRegistry_Register(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	req.False(reg.Known("stream"))
	reg.Register("stream")
	req.True(reg.Known("stream"))
	req.NoError(reg.Validate(Ref{Kind: "stream", ID: "1"}))
}

func TestRef_String(t *testing.T) {
	require.Equal(t, "event:42", Ref{Kind: "event", ID: "42"}.String())
}
