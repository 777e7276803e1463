package domain

// Setting is a process-wide key/value configuration row, upserted by key.
type Setting struct {
	Key   string `db:"key"   json:"key"`
	Value string `db:"value" json:"value"`
}

// SettingPauseMode is the dispatch circuit-breaker flag. When its value is
// "true" the dispatch scheduler does nothing on its tick.
const SettingPauseMode = "pause_mode"
