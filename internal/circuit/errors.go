package circuit

import "errors"

var (
	// ErrInvalidSourceActivation is returned by StartSignal on a node that is
	// not an INPUT. The call has no effect.
	ErrInvalidSourceActivation = errors.New("signal can only start from an input node")

	// ErrIllegalEdge is returned by AddNeighbor when the edge would leave an
	// OUTPUT, enter an INPUT, or connect a node to itself.
	ErrIllegalEdge = errors.New("illegal edge")

	// ErrNullEndpoint is returned by edge operations given an absent node.
	ErrNullEndpoint = errors.New("edge endpoint does not exist")

	// ErrUnknownNode is returned by single-node operations given an absent node.
	ErrUnknownNode = errors.New("unknown node")

	ErrDuplicateNode = errors.New("duplicate node name")
	ErrInvalidNode   = errors.New("node name must not be empty")
	ErrInvalidKind   = errors.New("invalid node kind")
)
