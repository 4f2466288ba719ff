package types

const (
	NO_PAGINATION = 0
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)

const (
	DEFAULT_APPID = "livetable"

	// fan-out channel suffix after the redis key prefix, one channel per table
	FANOUT_TOPIC_PREFIX = ":table:"
)
