package room

// CommandType names one of the validated gameplay commands (join
// and leave are transport-level lifecycle events, handled directly by Room,
// not dispatched through the registry).
type CommandType string

const (
	CommandReady       CommandType = "ready"
	CommandSummon      CommandType = "summon"
	CommandUpgradeCost CommandType = "upgrade_cost"
)

// ErrorCode is one of the error taxonomy codes sent back to a client on a
// rejected command.
type ErrorCode string

const (
	ErrGameNotPlaying   ErrorCode = "GAME_NOT_PLAYING"
	ErrInvalidUnit      ErrorCode = "INVALID_UNIT"
	ErrUnitNotInDeck    ErrorCode = "UNIT_NOT_IN_DECK"
	ErrCooldown         ErrorCode = "COOLDOWN"
	ErrInsufficientCost ErrorCode = "INSUFFICIENT_COST"
	ErrSpawnFailed      ErrorCode = "SPAWN_FAILED"
	ErrCannotUpgrade    ErrorCode = "CANNOT_UPGRADE"
)

// CommandError is reported only to the offending client, never broadcast.
type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// NewCommandError constructs a CommandError.
func NewCommandError(code ErrorCode, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// CommandContext carries everything a CommandHandler needs to validate and
// process one inbound command.
type CommandContext struct {
	Room   *Room
	Player *Player
	UnitID string

	// SpawnedUnitID is populated by SummonHandler.Process on success so the
	// orchestrator can broadcast unit_spawned without re-deriving it.
	SpawnedUnitID *string
}

// CommandHandler validates and processes one inbound command type.
type CommandHandler interface {
	CommandType() CommandType
	Validate(ctx *CommandContext) error
	Process(ctx *CommandContext) error
}

// HandlerRegistry dispatches inbound commands to their handler by type.
type HandlerRegistry struct {
	handlers map[CommandType]CommandHandler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[CommandType]CommandHandler)}
}

// Register adds a handler to the registry.
func (r *HandlerRegistry) Register(h CommandHandler) {
	r.handlers[h.CommandType()] = h
}

// Get retrieves a handler for the given command type.
func (r *HandlerRegistry) Get(t CommandType) (CommandHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}
