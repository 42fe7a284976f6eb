package graph

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"caveatlab/delegraph/internal/caveat"
)

// Expiry states.
const (
	ExpiryExpired  = "expired"
	ExpiryPending  = "pending"
	ExpiryExpiring = "expiring"
)

// ExpiringDelegation is a delegation whose time window excludes now, or
// closes within the warning window.
type ExpiringDelegation struct {
	DelegationID string `json:"delegation_id"`
	Delegator    string `json:"delegator"`
	Delegate     string `json:"delegate"`
	State        string `json:"state"`
	Window       string `json:"window"`
	Relative     string `json:"relative"`
	boundary     int64
}

// ExpiryReport groups delegations by time-window state.
type ExpiryReport struct {
	Expired       []ExpiringDelegation `json:"expired"`
	Pending       []ExpiringDelegation `json:"pending"`
	Expiring      []ExpiringDelegation `json:"expiring"`
	ExpiredCount  int                  `json:"expired_count"`
	PendingCount  int                  `json:"pending_count"`
	ExpiringCount int                  `json:"expiring_count"`
}

// ComputeExpiry checks each delegation's decoded time windows against now.
// A delegation with several windows is classified by the first one that
// excludes now.
func ComputeExpiry(snap *Snapshot, lookup caveat.Lookup, now time.Time, warn time.Duration) *ExpiryReport {
	r := &ExpiryReport{
		Expired:  []ExpiringDelegation{},
		Pending:  []ExpiringDelegation{},
		Expiring: []ExpiringDelegation{},
	}
	if lookup == nil {
		return r
	}

	for i, d := range snap.Records {
		for _, dc := range lookup.DecodedCaveatsFor(d) {
			w, ok := dc.(caveat.TimeWindow)
			if !ok {
				continue
			}
			e := ExpiringDelegation{
				DelegationID: d.ID(),
				Delegator:    snap.Accounts[snap.From[i]],
				Delegate:     snap.Accounts[snap.To[i]],
				Window:       w.Description(),
			}
			switch {
			case w.Expired(now):
				e.State = ExpiryExpired
				e.boundary = int64(*w.BeforeThreshold)
				e.Relative = "ended " + humanize.RelTime(time.Unix(e.boundary, 0), now, "ago", "from now")
				r.Expired = append(r.Expired, e)
			case w.Pending(now):
				e.State = ExpiryPending
				e.boundary = int64(*w.AfterThreshold)
				e.Relative = "starts " + humanize.RelTime(time.Unix(e.boundary, 0), now, "ago", "from now")
				r.Pending = append(r.Pending, e)
			case w.BeforeThreshold != nil && time.Unix(int64(*w.BeforeThreshold), 0).Sub(now) <= warn:
				e.State = ExpiryExpiring
				e.boundary = int64(*w.BeforeThreshold)
				e.Relative = "ends " + humanize.RelTime(time.Unix(e.boundary, 0), now, "ago", "from now")
				r.Expiring = append(r.Expiring, e)
			default:
				continue
			}
			break
		}
	}

	// Soonest boundary first.
	sort.SliceStable(r.Expired, func(i, j int) bool { return r.Expired[i].boundary > r.Expired[j].boundary })
	sort.SliceStable(r.Pending, func(i, j int) bool { return r.Pending[i].boundary < r.Pending[j].boundary })
	sort.SliceStable(r.Expiring, func(i, j int) bool { return r.Expiring[i].boundary < r.Expiring[j].boundary })

	r.ExpiredCount = len(r.Expired)
	r.PendingCount = len(r.Pending)
	r.ExpiringCount = len(r.Expiring)
	return r
}
