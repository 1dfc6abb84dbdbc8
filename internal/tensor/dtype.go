package tensor

import "fmt"

// DataType is the runtime type tag of a RawTensor.
type DataType int

// Supported data types. Float32 is the training dtype; Float64 exists for
// numeric tests and finite-difference checks; Int64 carries class labels
// and argmax results.
const (
	Float32 DataType = iota
	Float64
	Int64
)

// String returns a human-readable type name.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// Size returns the element size in bytes.
func (d DataType) Size() int {
	switch d {
	case Float32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic(fmt.Sprintf("unknown dtype %d", int(d)))
	}
}

// DType is the compile-time constraint for tensor element types.
type DType interface {
	float32 | float64 | int64
}

func inferDataType(v any) DataType {
	switch v.(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int64:
		return Int64
	default:
		panic(fmt.Sprintf("unsupported element type %T", v))
	}
}
