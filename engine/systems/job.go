package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/glacier/engine/core"
)

// JobTask is one unit of work. Run is required; the callbacks are optional
// and run on the worker that executed the task.
type JobTask struct {
	Name       string
	Run        func() error
	OnFailure  func(err error)
	OnComplete func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan JobTask
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan JobTask, channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.execute(job)
			}
		}()
	}
}

func (js *JobSystem) execute(job JobTask) {
	if err := job.Run(); err != nil {
		core.LogError("job %s failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete()
	}
}

// Shutdown stops accepting work and waits for queued jobs to finish.
func (js *JobSystem) Shutdown() error {
	js.closeOnce.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
	return nil
}

// Submit queues a job, blocking while the queue is full.
func (js *JobSystem) Submit(jt JobTask) {
	js.jobQueue <- jt
}

// RunAll submits every task and waits for all of them. The failures are
// joined in task order.
func (js *JobSystem) RunAll(tasks []JobTask) error {
	errs := make([]error, len(tasks))
	var done sync.WaitGroup
	done.Add(len(tasks))
	for i, task := range tasks {
		i, task := i, task
		onFailure, onComplete := task.OnFailure, task.OnComplete
		task.OnFailure = func(err error) {
			errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			if onFailure != nil {
				onFailure(err)
			}
			done.Done()
		}
		task.OnComplete = func() {
			if onComplete != nil {
				onComplete()
			}
			done.Done()
		}
		js.Submit(task)
	}
	done.Wait()
	return errors.Join(errs...)
}
