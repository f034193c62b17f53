package cache

// Pub/sub channels.
const (
	TopicPilotUpdate      = "PILOT:UPDATE"
	TopicPilotDelete      = "PILOT:DELETE"
	TopicControllerDelete = "CONTROLLER:DELETE"
	TopicAtisDelete       = "ATIS:DELETE"
)

// Plain keys shared with the web front end.
const KeyAirports = "airports"

func PilotKey(callsign string) string {
	return "PILOT:" + callsign
}

func AtisKey(airport string) string {
	return "ATIS:" + airport
}

func MetarKey(airport string) string {
	return "METAR:" + airport
}
