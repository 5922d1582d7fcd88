package clients

const (
	MAX_RETRIES = 5
	USER_AGENT  = "aspectflow/1.0 (+https://github.com/spacesedan/aspectflow)"
)
