package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Signaling       Category = "Signaling"
	Presence        Category = "Presence"
	Audio           Category = "Audio"
	RabbitMQ        Category = "RabbitMQ"
	Mongo           Category = "Mongo"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Signaling
	Join      SubCategory = "Join"
	Leave     SubCategory = "Leave"
	Routing   SubCategory = "Routing"
	Transport SubCategory = "Transport"

	// Audio
	Forwarding SubCategory = "Forwarding"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	RoomID       ExtraKey = "RoomID"
	UserID       ExtraKey = "UserID"
	ConnID       ExtraKey = "ConnID"
	FrameType    ExtraKey = "FrameType"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
