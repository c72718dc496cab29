package remote

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.CoreDetEncOptions()
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("remote: CBOR encoder mode: %v", err))
	}

	// Messages are flat maps. Unknown keys and duplicates (last wins) are
	// accepted; anything deeper or larger than a message can be is not.
	decOpts := cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyQuiet,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxNestedLevels:  4,
		MaxMapPairs:      16,
		MaxArrayElements: 16,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("remote: CBOR decoder mode: %v", err))
	}
}

// EncodeRequest encodes a request.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return encMode.Marshal(req)
}

// DecodeRequest decodes and validates a request.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := decMode.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// EncodeResponse encodes a response.
func EncodeResponse(resp *Response) ([]byte, error) {
	return encMode.Marshal(resp)
}

// DecodeResponse decodes a response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := decMode.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &resp, nil
}

// PeekMessageID extracts the message ID from an undecodable request so the
// error response can still be correlated. It returns 0 if even that fails.
func PeekMessageID(data []byte) uint32 {
	var partial struct {
		MessageID uint32 `cbor:"1,keyasint"`
	}
	if err := decMode.Unmarshal(data, &partial); err != nil {
		return 0
	}
	return partial.MessageID
}
