package sysmsg

// SystemMessage is a message handled by the actor runtime before it reaches user code
type SystemMessage interface {
	systemMessage()
}

type Reason struct {
	Type    string
	Details interface{}
}

const (
	// Kill reason in case of a Shutdown message
	Kill   = "kill"
	Panic  = "panic"
	Normal = "normal"
	// NoProc is reported when the actor had already terminated
	NoProc = "noproc"
)

type Relation string

const (
	Monitored Relation = "monitored"
)
