package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_CONFLICT          = "error.conflict"
	ERROR_TRANSPORT         = "error.transport"

	ERROR_TABLE_NOT_FOUND       = "error.table.notfound"
	ERROR_COLUMN_NOT_FOUND      = "error.column.notfound"
	ERROR_NAME_EMPTY            = "error.name.empty"
	ERROR_ROW_INDEX_INVALID     = "error.row_index.invalid"
	ERROR_COLUMN_COUNT_MISMATCH = "error.column_count.mismatch"
	ERROR_COLUMN_SPEC_INVALID   = "error.column_spec.invalid"
	ERROR_DUPLICATE_ORDER_INDEX = "error.order_index.duplicate"
	ERROR_NOT_JOINED            = "error.sync.not_joined"
	ERROR_UNSUPPORTED_OPERATION = "error.sync.unsupported_operation"
	ERROR_MALFORMED_MESSAGE     = "error.sync.malformed_message"
)
