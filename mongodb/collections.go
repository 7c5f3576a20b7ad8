package mongodb

const (
	SessionsCollection = "monitored_sessions"
)
