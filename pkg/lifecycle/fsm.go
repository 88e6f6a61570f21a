package lifecycle

import (
	"github.com/cuemby/hostbroker/pkg/brokererr"
	"github.com/cuemby/hostbroker/pkg/types"
)

// requestTransitions is the Request state machine (spec.md §4.3): Pending
// advances to Creating on acquire-initiated, or straight to Failed on
// timeout before any provider call ever ran.
var requestTransitions = map[types.RequestStatus]map[types.RequestStatus]bool{
	types.RequestPending: {
		types.RequestCreating: true,
		types.RequestFailed:   true,
	},
	types.RequestCreating: {
		types.RequestRunning: true,
		types.RequestFailed:  true,
	},
	types.RequestRunning: {
		types.RequestComplete:          true,
		types.RequestCompleteWithError: true,
		types.RequestFailed:            true,
	},
	types.RequestComplete:          {},
	types.RequestCompleteWithError: {},
	types.RequestFailed:            {},
}

// transitionRequest validates from → to against requestTransitions,
// returning an InvalidStateTransition error when the move isn't allowed.
func transitionRequest(requestID string, from, to types.RequestStatus) error {
	if from == to {
		return nil
	}
	if requestTransitions[from][to] {
		return nil
	}
	return brokererr.InvalidStateTransition("Request:"+requestID, string(from), string(to))
}
