// Package camera defines the camera records supervised by the connector
// and loads them from the JSON camera list.
package camera

// DefaultUsername is used when a camera record omits the user field.
const DefaultUsername = "admin"

// Variant is a named quality tier of a camera's stream offering.
// Variants are probed in declared preference order.
type Variant struct {
	Name      string
	StreamNum int
}

// Variants is the fixed preference-ordered list of stream tiers.
// main and ext ride the primary stream, sub rides the secondary.
var Variants = []Variant{
	{Name: "main", StreamNum: 0},
	{Name: "ext", StreamNum: 0},
	{Name: "sub", StreamNum: 1},
}

// Record is a single entry of the JSON camera list. Field names are the
// external contract of the config file and must not change.
type Record struct {
	Address  string `json:"ip"`
	Username string `json:"user,omitempty"`
	Password string `json:"password"`
}

// Camera is a registered camera bound to a fixed capture slot.
// The slot index never changes after registration. All fields are
// mutated only by the supervisor loop.
type Camera struct {
	Slot     int
	Address  string
	Username string
	Password string

	// Skipped cameras are excluded from supervision permanently.
	Skipped    bool
	SkipReason string
}
