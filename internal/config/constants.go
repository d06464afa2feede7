package config

// Version is reported by the dynlink CLI.
const Version = "0.3.0"

// Namespace is token 0 of every descriptor the linkers recognise.
const Namespace = "dyn"

// TokenSeparator splits a descriptor name into tokens ("dyn:getProp:name").
const TokenSeparator = ":"

// Operation names (token 1 of a descriptor).
const (
	OpGetProp          = "getProp"
	OpSetProp          = "setProp"
	OpCallPropWithThis = "callPropWithThis"
	OpGetLength        = "getLength"
	OpGetItem          = "getItem"
	OpSetItem          = "setItem"
	OpNew              = "new"
)

// StaticsProperty is the virtual property of a class that yields its static surface.
const StaticsProperty = "statics"

// Accessor prefixes recognised by the bean naming convention.
const (
	GetterPrefix     = "Get"
	BoolGetterPrefix = "Is"
	SetterPrefix     = "Set"
)

// LenMethodName is the method that makes a type report a size for getLength.
const LenMethodName = "Len"

// DefaultMaxChain is the number of guarded invocations a call site keeps
// before it starts dropping the oldest ones.
const DefaultMaxChain = 8

// DefaultConfigFile is looked up in the working directory by the CLI.
const DefaultConfigFile = "dynlink.yaml"

// EnvPrefix prefixes environment overrides (DYNLINK_LOG_LEVEL, ...).
const EnvPrefix = "DYNLINK"
