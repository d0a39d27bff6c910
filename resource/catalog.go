// Package resource holds the semi-static catalog: lessons and simulation
// tasks, opportunity listings and simulation scenarios. The catalog is read
// from YAML and can be swapped at runtime.
package resource

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/skillbridge/skillbridge/server/progression"
	"gopkg.in/yaml.v3"
)

type TaskKind string

const (
	TaskLesson     TaskKind = "lesson"
	TaskSimulation TaskKind = "simulation"
)

const defaultQuestionXP = 10

// Question is one multiple-choice quiz item. AnswerIndex never leaves the
// server.
type Question struct {
	ID          string   `yaml:"id" json:"id"`
	Prompt      string   `yaml:"prompt" json:"prompt"`
	Options     []string `yaml:"options" json:"options"`
	AnswerIndex int      `yaml:"answer_index" json:"-"`
	XP          int64    `yaml:"xp" json:"xp"`
}

type Quiz struct {
	Questions []Question `yaml:"questions" json:"questions"`
}

// Answer is a user's choice for one question.
type Answer struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
}

// Score returns the XP earned by answers and the XP available. Unknown
// question ids are ignored and a question counts at most once.
func (q *Quiz) Score(answers []Answer) (earned, total int64) {
	byID := make(map[string]Question, len(q.Questions))
	for _, qu := range q.Questions {
		total += qu.xp()
		byID[qu.ID] = qu
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		qu, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		if _, dup := seen[a.QuestionID]; dup {
			continue
		}
		seen[a.QuestionID] = struct{}{}
		if a.SelectedIndex == qu.AnswerIndex {
			earned += qu.xp()
		}
	}
	return earned, total
}

func (q Question) xp() int64 {
	if q.XP <= 0 {
		return defaultQuestionXP
	}
	return q.XP
}

// Task is a roadmap item: a lesson (optionally quizzed) or a simulation
// prompt.
type Task struct {
	ID           string            `yaml:"id" json:"id"`
	Title        string            `yaml:"title" json:"title"`
	Description  string            `yaml:"description" json:"description,omitempty"`
	Kind         TaskKind          `yaml:"kind" json:"kind"`
	MinPhase     progression.Phase `yaml:"min_phase" json:"minPhase"`
	MinReadiness int               `yaml:"min_readiness" json:"minReadinessScore"`
	XP           int64             `yaml:"xp" json:"xp"`
	TopicID      string            `yaml:"topic_id" json:"topicId,omitempty"`
	TopicName    string            `yaml:"topic_name" json:"topicName,omitempty"`
	Quiz         *Quiz             `yaml:"quiz" json:"quiz,omitempty"`
}

func (t Task) Requirement() progression.Requirement {
	return progression.Requirement{MinReadiness: t.MinReadiness, MinPhase: t.MinPhase}
}

// Opportunity is a gig or job listing gated by readiness and phase.
type Opportunity struct {
	ID           string            `yaml:"id" json:"id"`
	Title        string            `yaml:"title" json:"title"`
	Type         string            `yaml:"type" json:"type"`
	Payout       string            `yaml:"payout" json:"payout"`
	Description  string            `yaml:"description" json:"description,omitempty"`
	MinReadiness int               `yaml:"min_readiness" json:"minReadinessScore"`
	MinPhase     progression.Phase `yaml:"min_phase" json:"minPhase"`
}

func (o Opportunity) Requirement() progression.Requirement {
	return progression.Requirement{MinReadiness: o.MinReadiness, MinPhase: o.MinPhase}
}

// Scenario is a simulation prompt for a topic within a phase.
type Scenario struct {
	ID        string            `yaml:"id" json:"id"`
	Phase     progression.Phase `yaml:"phase" json:"phase"`
	TopicID   string            `yaml:"topic_id" json:"topicId"`
	TopicName string            `yaml:"topic_name" json:"topicName"`
	Prompt    string            `yaml:"prompt" json:"prompt"`
}

// Catalog is an immutable snapshot. Replace it rather than modify it.
type Catalog struct {
	Tasks         []Task        `yaml:"tasks"`
	Opportunities []Opportunity `yaml:"opportunities"`
	Scenarios     []Scenario    `yaml:"scenarios"`

	tasks map[string]int
	opps  map[string]int
}

// Parse decodes and validates a YAML catalog. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	c := &Catalog{}
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("resource: parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) index() error {
	var errs []error
	c.tasks = make(map[string]int, len(c.Tasks))
	for i, t := range c.Tasks {
		if t.ID == "" {
			errs = append(errs, fmt.Errorf("task #%d: missing id", i))
			continue
		}
		if _, dup := c.tasks[t.ID]; dup {
			errs = append(errs, fmt.Errorf("task %s: duplicate id", t.ID))
		}
		if t.Kind != TaskLesson && t.Kind != TaskSimulation {
			errs = append(errs, fmt.Errorf("task %s: unknown kind %q", t.ID, t.Kind))
		}
		errs = append(errs, checkGate("task "+t.ID, t.MinPhase, t.MinReadiness))
		if t.XP < 0 {
			errs = append(errs, fmt.Errorf("task %s: negative xp", t.ID))
		}
		if t.Quiz != nil {
			for _, q := range t.Quiz.Questions {
				if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
					errs = append(errs, fmt.Errorf("task %s: question %s answer_index out of range", t.ID, q.ID))
				}
			}
		}
		c.tasks[t.ID] = i
	}
	c.opps = make(map[string]int, len(c.Opportunities))
	for i, o := range c.Opportunities {
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("opportunity #%d: missing id", i))
			continue
		}
		if _, dup := c.opps[o.ID]; dup {
			errs = append(errs, fmt.Errorf("opportunity %s: duplicate id", o.ID))
		}
		errs = append(errs, checkGate("opportunity "+o.ID, o.MinPhase, o.MinReadiness))
		c.opps[o.ID] = i
	}
	for _, s := range c.Scenarios {
		if !s.Phase.Valid() {
			errs = append(errs, fmt.Errorf("scenario %s: unknown phase %q", s.ID, s.Phase))
		}
		if strings.TrimSpace(s.Prompt) == "" {
			errs = append(errs, fmt.Errorf("scenario %s: empty prompt", s.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("resource: invalid catalog: %w", err)
	}
	return nil
}

func checkGate(what string, phase progression.Phase, readiness int) error {
	if phase != "" && !phase.Valid() {
		return fmt.Errorf("%s: unknown phase %q", what, phase)
	}
	if readiness < 0 || readiness > 100 {
		return fmt.Errorf("%s: min_readiness %d outside 0-100", what, readiness)
	}
	return nil
}

func (c *Catalog) Task(id string) (Task, bool) {
	i, ok := c.tasks[id]
	if !ok {
		return Task{}, false
	}
	return c.Tasks[i], true
}

func (c *Catalog) Opportunity(id string) (Opportunity, bool) {
	i, ok := c.opps[id]
	if !ok {
		return Opportunity{}, false
	}
	return c.Opportunities[i], true
}

// Scenario picks a scenario for topic (matched against id or name, case
// insensitive) in phase. An empty topic takes the first scenario of the
// phase.
func (c *Catalog) Scenario(topic string, phase progression.Phase) (Scenario, bool) {
	topic = strings.TrimSpace(topic)
	var inPhase *Scenario
	for i := range c.Scenarios {
		s := &c.Scenarios[i]
		if s.Phase != phase {
			continue
		}
		if topic != "" && (strings.EqualFold(s.TopicID, topic) || strings.EqualFold(s.TopicName, topic)) {
			return *s, true
		}
		if inPhase == nil {
			inPhase = s
		}
	}
	if topic == "" && inPhase != nil {
		return *inPhase, true
	}
	return Scenario{}, false
}
