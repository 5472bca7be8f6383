package sqlsession

import "strings"

// DataType is the declared type of a result column or statement parameter.
//
// Unknown is used when the driver cannot tell (or the type is not supported
// yet); values of such columns still carry their own Kind.
type DataType uint8

const (
	Unknown DataType = iota
	Integer
	Float
	Decimal // Fixed precision.
	String
	Timestamp
	Boolean
	Binary
)

var dataTypeNames = [...]string{
	Unknown:   "unknown",
	Integer:   "integer",
	Float:     "float",
	Decimal:   "decimal",
	String:    "string",
	Timestamp: "timestamp",
	Boolean:   "boolean",
	Binary:    "binary",
}

func (t DataType) String() string {
	if int(t) < len(dataTypeNames) {
		return dataTypeNames[t]
	}
	return "unknown"
}

// Accepts reports whether a value of kind k may be bound where t is expected.
// NULL is accepted everywhere, Unknown accepts everything.
func (t DataType) Accepts(k Kind) bool {
	if k == KindNull || t == Unknown {
		return true
	}
	switch t {
	case Integer:
		return k == KindInt
	case Float:
		return k == KindInt || k == KindFloat
	case Decimal:
		return k == KindInt || k == KindFloat || k == KindDecimal
	case String:
		return k == KindString
	case Timestamp:
		return k == KindTimestamp
	case Boolean:
		return k == KindBool
	case Binary:
		return k == KindBytes || k == KindString
	}
	return false
}

// Column describes one column of a result.
type Column struct {
	Name         string   // Column label as reported by the backend.
	Type         DataType // Normalized type.
	DatabaseType string   // Backend specific type name, if known.
	Nullable     bool     // False only when the backend guarantees non-NULL values.
}

// ParseDataType maps a backend type name onto a DataType. It understands the
// common SQL spellings used by MySQL, SQLite, PostgreSQL compatible engines
// and Athena; anything else is Unknown.
func ParseDataType(name string) DataType {
	n := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(n, '('); i >= 0 {
		n = strings.TrimSpace(n[:i])
	}
	n = strings.TrimSuffix(strings.TrimPrefix(n, "unsigned "), " unsigned")

	switch n {
	case "int", "integer", "tinyint", "smallint", "mediumint", "bigint",
		"int2", "int4", "int8", "serial", "bigserial", "year":
		return Integer
	case "float", "double", "double precision", "real", "float4", "float8":
		return Float
	case "decimal", "numeric", "dec", "fixed":
		return Decimal
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext",
		"string", "character varying", "character", "nvarchar", "nchar",
		"json", "enum", "set", "uuid", "date", "time":
		return String
	case "timestamp", "datetime", "timestamptz", "timestamp with time zone",
		"timestamp without time zone":
		return Timestamp
	case "bool", "boolean", "bit":
		return Boolean
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bytea":
		return Binary
	}
	return Unknown
}
