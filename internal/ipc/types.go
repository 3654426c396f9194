package ipc

type CommandType string

const (
	CommandStop   CommandType = "stop"
	CommandNext   CommandType = "next"
	CommandPause  CommandType = "pause"
	CommandResume CommandType = "resume"
	CommandLoad   CommandType = "load"
	CommandReload CommandType = "reload"
	CommandStatus CommandType = "status"
)

// Valid reports whether t names a known command.
func (t CommandType) Valid() bool {
	switch t {
	case CommandStop, CommandNext, CommandPause, CommandResume, CommandLoad, CommandReload, CommandStatus:
		return true
	}
	return false
}

type Command struct {
	Type CommandType `json:"type"`
	Args []string    `json:"args"`
}

// ManagerInterface is what the socket server needs from a running slideshow.
type ManagerInterface interface {
	// Status returns a JSON-encodable snapshot of the slideshow.
	Status() any
	EnqueueCommand(Command) error
}

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
	PID     int    `json:"pid"`
	Socket  string `json:"socket"`
	Config  string `json:"config"`
	Show    any    `json:"show"`
}
