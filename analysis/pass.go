// Copyright the solguard authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/solguard/solguard/internal/graphutil"
)

// ErrDependencyCycle is returned when the registered passes form a dependency cycle
var ErrDependencyCycle = errors.New("pass dependency cycle")

// Pass is one analysis step. Run reads its dependencies' artifacts from the state
// and stores its own; IsCompleted must answer true exactly when the artifact is in
// place, so the manager can verify completion after Run returns.
type Pass interface {
	ID() PassId
	Dependencies() []PassId
	Run(s *State) error
	IsCompleted(s *State) bool
}

// PassManager registers passes and runs them in dependency order
type PassManager struct {
	passes map[PassId]Pass
}

// NewPassManager returns an empty manager
func NewPassManager() *PassManager {
	return &PassManager{passes: map[PassId]Pass{}}
}

// Register adds a pass. Registering two passes with the same id panics: the pass
// set is assembled statically and a duplicate is a programming error.
func (pm *PassManager) Register(p Pass) {
	if _, ok := pm.passes[p.ID()]; ok {
		panic(fmt.Sprintf("pass %s registered twice", p.ID()))
	}
	pm.passes[p.ID()] = p
}

// Schedule returns the registered passes sorted so every pass follows its
// dependencies. A dependency on an unregistered pass or a cycle is an error.
func (pm *PassManager) Schedule() ([]Pass, error) {
	adjacency := map[int64][]int64{}
	labels := map[int64]string{}
	for id := range pm.passes {
		adjacency[int64(id)] = nil
		labels[int64(id)] = id.String()
	}
	for id, p := range pm.passes {
		cfgDep := false
		for _, dep := range p.Dependencies() {
			if _, ok := pm.passes[dep]; !ok {
				return nil, fmt.Errorf("pass %s depends on unregistered pass %s", id, dep)
			}
			if dep == CfgPass {
				cfgDep = true
			}
			adjacency[int64(dep)] = append(adjacency[int64(dep)], int64(id))
		}
		if id.RequiresIR() && !cfgDep {
			return nil, fmt.Errorf("pass %s reads the control-flow graphs but does not depend on %s", id, CfgPass)
		}
	}

	sorted, err := topo.Sort(graphutil.NewIntGraph(adjacency, labels))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDependencyCycle, err)
	}
	order := make([]Pass, 0, len(sorted))
	for _, n := range sorted {
		order = append(order, pm.passes[PassId(n.ID())])
	}
	return order, nil
}

// Run executes the registered passes in dependency order. A pass whose dependency
// did not complete is skipped with an error recorded in the state; the remaining
// passes still run so one failure does not hide unrelated findings.
func (pm *PassManager) Run(s *State) error {
	order, err := pm.Schedule()
	if err != nil {
		return err
	}

	for _, p := range order {
		if !pm.depsCompleted(p, s) {
			err := fmt.Errorf("pass %s skipped: dependency did not complete", p.ID())
			s.Logger.Warnf("%v", err)
			s.AddError(p.ID().String(), err)
			continue
		}
		s.Logger.Debugf("running pass %s", p.ID())
		if err := p.Run(s); err != nil {
			s.Logger.Errorf("pass %s failed: %v", p.ID(), err)
			s.AddError(p.ID().String(), err)
			continue
		}
		if !p.IsCompleted(s) {
			err := fmt.Errorf("pass %s returned without storing its artifact", p.ID())
			s.AddError(p.ID().String(), err)
		}
	}
	return nil
}

func (pm *PassManager) depsCompleted(p Pass, s *State) bool {
	for _, dep := range p.Dependencies() {
		if !s.Completed(dep) {
			return false
		}
	}
	return true
}
