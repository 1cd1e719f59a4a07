package enums

// OverrideChange is the admin action recorded on an override_rule_changed event.
type OverrideChange string

const (
	OverrideChangeCreated     OverrideChange = "created"
	OverrideChangeUpdated     OverrideChange = "updated"
	OverrideChangeActivated   OverrideChange = "activated"
	OverrideChangeDeactivated OverrideChange = "deactivated"
)

var overrideChanges = []OverrideChange{
	OverrideChangeCreated,
	OverrideChangeUpdated,
	OverrideChangeActivated,
	OverrideChangeDeactivated,
}

func (c OverrideChange) String() string { return string(c) }

func (c OverrideChange) IsValid() bool { return known(c, overrideChanges) }

// SyncState tracks whether the ERP has acknowledged the latest rule version.
// Every mutation moves a rule back to pending.
type SyncState string

const (
	SyncStatePending SyncState = "pending"
	SyncStateSynced  SyncState = "synced"
	SyncStateFailed  SyncState = "failed"
)

var syncStates = []SyncState{SyncStatePending, SyncStateSynced, SyncStateFailed}

func (s SyncState) String() string { return string(s) }

func (s SyncState) IsValid() bool { return known(s, syncStates) }

// ParseSyncState accepts the raw sync_state query value.
func ParseSyncState(value string) (SyncState, error) {
	return parse("sync state", value, syncStates)
}
