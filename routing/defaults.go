package routing

const (
	DefaultUserEventPrefix = "user."
	DefaultTopicRoomPrefix = "topic_"
)

var (
	DefaultUserFields   = []string{"usuarioId"}
	DefaultTopicFields  = []string{"temaId"}
	DefaultGlobalEvents = []string{
		"presentacion.creada",
		"grabacion.creada",
		"calificacion.creada",
		"feedback.creado",
	}
)

type Options struct {
	UserEventPrefix string
	UserFields      []string
	GlobalEvents    []string
	TopicFields     []string
	TopicRoomPrefix string
}

func DefaultOptions() Options {
	return Options{
		UserEventPrefix: DefaultUserEventPrefix,
		UserFields:      DefaultUserFields,
		GlobalEvents:    DefaultGlobalEvents,
		TopicFields:     DefaultTopicFields,
		TopicRoomPrefix: DefaultTopicRoomPrefix,
	}
}

// NewStandard returns the hub's routing table: user-scoped events, then
// global events, then topic rooms, then the default room.
func NewStandard(opts Options) *Router {
	return New(
		UserScoped(opts.UserEventPrefix, opts.UserFields...),
		GlobalEvents(opts.GlobalEvents...),
		TopicScoped(opts.TopicRoomPrefix, opts.TopicFields...),
	)
}
