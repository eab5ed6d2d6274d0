package compute

// SerialBackend runs every kernel on the calling goroutine. Results match
// CPUBackend exactly because kernels own disjoint output ranges.
type SerialBackend struct{}

func NewSerialBackend() *SerialBackend { return &SerialBackend{} }

func (SerialBackend) Name() string { return "serial" }
func (SerialBackend) Workers() int { return 1 }
func (SerialBackend) Cleanup()     {}

func (SerialBackend) Dispatch(n int, k Kernel) error {
	if n <= 0 {
		return nil
	}
	return k(0, n)
}
