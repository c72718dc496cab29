// Package remote implements the remote write channel.
//
// The terminal exposes a single operation to remote parties: overwrite the
// access PIN. It is only permitted while the door is open, so a remote party
// has to be let in (or be next to someone who was) before it can change the
// code.
//
// Requests and responses are CBOR maps with integer keys, carried in
// length-prefixed frames over TCP (optionally TLS). The terminal advertises
// itself over mDNS as _impterm._tcp so clients can find it on the local
// network.
//
//	Request  {1: messageId, 2: operation, 3: attribute, 4: payload}
//	Response {1: messageId, 2: status}
package remote
