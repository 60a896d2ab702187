package types

import "errors"

// Configuration errors. Fatal at startup: the engine refuses to start.
var (
	ErrUnknownSchemaType    = errors.New("unknown schema type")
	ErrUnknownParentType    = errors.New("unknown parent type")
	ErrParentNotReady       = errors.New("parent type is not yet initialized")
	ErrDuplicateModelType   = errors.New("model type already registered")
	ErrInvalidDeclaration   = errors.New("invalid model declaration")
	ErrReadOnlyProperty     = errors.New("schema type property is read-only")
	ErrInvalidPropertyValue = errors.New("invalid schema type property value")
	ErrModelTypeLocked      = errors.New("model type is locked")
	ErrUnknownContext       = errors.New("unknown context")
	ErrEngineStarted        = errors.New("schema engine already started")
	ErrEngineNotStarted     = errors.New("schema engine not started")
)

// Data errors. Fatal per operation and returned to the caller.
var (
	ErrCyclicGraph      = errors.New("cyclic data object")
	ErrNoPrimaryKey     = errors.New("model has no primary key")
	ErrUnknownModelType = errors.New("unknown or invalid model type")
	ErrGraphTooDeep     = errors.New("data object nested too deeply")
	ErrInvalidValue     = errors.New("value does not match field type")
)

// Validation errors.
var (
	ErrValidation = errors.New("validation failed")
	ErrRequired   = errors.New("value is required")
	ErrNullValue  = errors.New("value must not be null")
)

// Storage errors.
var (
	ErrConnectorDetached = errors.New("connector is detached")
	ErrAlreadyAttached   = errors.New("connector is already attached")
	ErrGroupClosed       = errors.New("query group is closed")
	ErrNoColumns         = errors.New("model type has no storable columns")
	ErrNoSchemaRecorded  = errors.New("no schema snapshot recorded")
)

// Permission errors.
var (
	ErrPermissionDenied = errors.New("permission denied")
)
