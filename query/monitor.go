package query

import "github.com/poiesic/groundwork/core"

// Monitor provides hooks to observe a question as it moves through the pipeline.
type Monitor interface {
	Start(question string)
	AfterRetrieval(results []core.QueryResult)
	AfterPrompt(prompt *Prompt)
	Finish(answer *Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                      {}
func (n *noopMonitor) AfterRetrieval(_ []core.QueryResult) {}
func (n *noopMonitor) AfterPrompt(_ *Prompt)               {}
func (n *noopMonitor) Finish(_ *Answer)                    {}
