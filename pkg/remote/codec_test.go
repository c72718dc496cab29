package remote

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	req := &Request{MessageID: 7, Operation: OpWrite, Attribute: AttrAccessPIN, Payload: []byte("4321")}

	data, err := EncodeRequest(req)
	require.NoError(t, err)

	got, err := DecodeRequest(data)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestRequestUsesIntegerKeys(t *testing.T) {
	data, err := EncodeRequest(&Request{MessageID: 1, Operation: OpWrite, Attribute: AttrAccessPIN})
	require.NoError(t, err)

	var raw map[uint64]any
	require.NoError(t, cbor.Unmarshal(data, &raw))
	assert.Contains(t, raw, uint64(1))
	assert.Contains(t, raw, uint64(2))
	assert.Contains(t, raw, uint64(3))
	assert.NotContains(t, raw, uint64(4), "empty payload is omitted")
}

func TestEncodeRequestRejectsZeroID(t *testing.T) {
	_, err := EncodeRequest(&Request{Operation: OpWrite})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDecodeRequestInvalid(t *testing.T) {
	_, err := DecodeRequest([]byte{0xFF, 0x00})
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	zero, err := cbor.Marshal(map[int]any{2: 2, 3: 1})
	require.NoError(t, err)
	_, err = DecodeRequest(zero)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestPeekMessageID(t *testing.T) {
	// Payload of the wrong type still yields the ID.
	data, err := cbor.Marshal(map[int]any{1: 42, 2: 2, 4: 12345})
	require.NoError(t, err)
	_, err = DecodeRequest(data)
	require.Error(t, err)
	assert.Equal(t, uint32(42), PeekMessageID(data))

	assert.Zero(t, PeekMessageID([]byte{0xFF}))
}

func TestResponseRoundTrip(t *testing.T) {
	data, err := EncodeResponse(&Response{MessageID: 9, Status: StatusWriteNotPermitted})
	require.NoError(t, err)

	got, err := DecodeResponse(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.MessageID)
	assert.Equal(t, StatusWriteNotPermitted, got.Status)
	assert.ErrorIs(t, got.Status.Err(), ErrWriteNotPermitted)
}

func TestStatusErr(t *testing.T) {
	assert.NoError(t, StatusSuccess.Err())
	assert.ErrorIs(t, StatusUnsupported.Err(), ErrUnsupported)
	assert.ErrorIs(t, StatusInvalidMessage.Err(), ErrInvalidMessage)
	assert.EqualError(t, StatusFailure.Err(), "remote: FAILURE")
	assert.Equal(t, "UNKNOWN", Status(99).String())
}
