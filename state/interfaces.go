package state

// Getter reads committed values.
type Getter[K comparable] interface {
	Get(key K) (any, bool)
}

// Writer writes values into a store.
type Writer[K comparable] interface {
	Set(key K, value any)
}

var (
	_ Getter[string] = (*Store[string])(nil)
	_ Writer[string] = (*Store[string])(nil)
	_ Writer[string] = (*Setter[string])(nil)
)
