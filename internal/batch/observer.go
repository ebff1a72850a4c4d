package batch

// Observer is notified as a run progresses. Calls are made synchronously
// from the runner goroutine, in order, so implementations should not block
// for long.
type Observer interface {
	RunStarted(run *Run)
	EntryAdded(run *Run, e Entry)
	RunFinished(run *Run)
}

// NopObserver can be embedded to implement only part of Observer.
type NopObserver struct{}

func (NopObserver) RunStarted(*Run)        {}
func (NopObserver) EntryAdded(*Run, Entry) {}
func (NopObserver) RunFinished(*Run)       {}

// ObserverFunc adapts a function to an Observer that only sees entries.
type ObserverFunc func(run *Run, e Entry)

func (f ObserverFunc) RunStarted(*Run)              {}
func (f ObserverFunc) EntryAdded(run *Run, e Entry) { f(run, e) }
func (f ObserverFunc) RunFinished(*Run)             {}
