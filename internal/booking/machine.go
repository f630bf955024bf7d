package booking

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition wraps every rejected status change.
var ErrIllegalTransition = errors.New("illegal status transition")

type Status string

const (
	StatusCreated          Status = "CREATED"
	StatusAssigned         Status = "ASSIGNED"
	StatusAccepted         Status = "ACCEPTED"
	StatusReachedCustomer  Status = "REACHED_CUSTOMER"
	StatusVehiclePicked    Status = "VEHICLE_PICKED"
	StatusReachedMerchant  Status = "REACHED_MERCHANT"
	StatusVehicleAtGarage  Status = "VEHICLE_AT_MERCHANT"
	StatusServiceStarted   Status = "SERVICE_STARTED"
	StatusServiceCompleted Status = "SERVICE_COMPLETED"
	StatusOutForDelivery   Status = "OUT_FOR_DELIVERY"
	StatusQCPending        Status = "QC_PENDING"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelled        Status = "CANCELLED"
)

// PickupFlow and DirectFlow are the two ordered lifecycles a booking can
// follow. The flow is fixed at creation by pickup_required and never
// changes.
var PickupFlow = []Status{
	StatusCreated,
	StatusAssigned,
	StatusAccepted,
	StatusReachedCustomer,
	StatusVehiclePicked,
	StatusReachedMerchant,
	StatusVehicleAtGarage,
	StatusServiceStarted,
	StatusServiceCompleted,
	StatusOutForDelivery,
	StatusDelivered,
}

var DirectFlow = []Status{
	StatusCreated,
	StatusAssigned,
	StatusAccepted,
	StatusVehicleAtGarage,
	StatusServiceStarted,
	StatusServiceCompleted,
	StatusDelivered,
}

// InProgressStatuses is the set auto-discovery considers an open, live
// booking for a field worker.
var InProgressStatuses = []Status{
	StatusAssigned,
	StatusAccepted,
	StatusReachedCustomer,
	StatusVehiclePicked,
	StatusReachedMerchant,
	StatusServiceCompleted,
	StatusOutForDelivery,
	StatusQCPending,
}

// UnbindStatuses are the milestones that end live sharing for the bound
// booking: arrival at the garage or a terminal state.
var UnbindStatuses = []Status{
	StatusReachedMerchant,
	StatusVehicleAtGarage,
	StatusDelivered,
	StatusCancelled,
}

// ETAStatuses are the legs during which an ETA towards the current
// destination makes sense.
var ETAStatuses = []Status{
	StatusAccepted,
	StatusReachedCustomer,
	StatusOutForDelivery,
}

// successors holds the set of legal next statuses per flow, keyed by the
// current status: every strictly-later status in the flow. Legality is
// decided by table lookup, never by array-position arithmetic at the call
// site. CANCELLED is handled separately as the universal escape.
var pickupSuccessors = successorTable(PickupFlow)
var directSuccessors = successorTable(DirectFlow)

func successorTable(flow []Status) map[Status]map[Status]struct{} {
	m := make(map[Status]map[Status]struct{}, len(flow))
	for i, cur := range flow {
		set := make(map[Status]struct{}, len(flow)-i-1)
		for _, later := range flow[i+1:] {
			set[later] = struct{}{}
		}
		m[cur] = set
	}
	return m
}

// FlowFor returns the ordered status sequence for a booking variant.
func FlowFor(pickupRequired bool) []Status {
	if pickupRequired {
		return PickupFlow
	}
	return DirectFlow
}

// StatusIndex returns the position of s in the flow, or -1 when s is not
// part of it. Progress rendering treats every earlier-or-equal index as
// completed.
func StatusIndex(flow []Status, s Status) int {
	for i, v := range flow {
		if v == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition can leave s.
func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

// StatusIn reports membership of s in set.
func StatusIn(s Status, set []Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition validates current -> next for the given flow variant. An
// illegal transition returns a descriptive error and must leave the
// stored status untouched at the call site.
func CanTransition(pickupRequired bool, current, next Status) error {
	if IsTerminal(current) {
		return fmt.Errorf("%w: booking already %s", ErrIllegalTransition, current)
	}
	if next == StatusCancelled {
		return nil
	}

	table := directSuccessors
	if pickupRequired {
		table = pickupSuccessors
	}
	if StatusIndex(FlowFor(pickupRequired), next) < 0 {
		return fmt.Errorf("%w: %s is not part of this booking's flow", ErrIllegalTransition, next)
	}
	if _, ok := table[current][next]; !ok {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrIllegalTransition, current, next)
	}
	return nil
}
