package testsCommon

// RequestCounterStub -
type RequestCounterStub struct {
	TakeCountersHandler func() map[string]int
}

// TakeCounters -
func (stub *RequestCounterStub) TakeCounters() map[string]int {
	if stub.TakeCountersHandler != nil {
		return stub.TakeCountersHandler()
	}

	return make(map[string]int)
}
