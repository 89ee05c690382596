package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type exportedTask struct {
	ID        string    `yaml:"id"`
	LocalID   string    `yaml:"localId,omitempty"`
	Text      string    `yaml:"text"`
	Completed bool      `yaml:"completed"`
	Priority  string    `yaml:"priority"`
	State     string    `yaml:"state"`
	CreatedAt time.Time `yaml:"createdAt"`
}

// Export writes tasks in the given format. JSON output is the storage
// snapshot format and can be loaded back.
func Export(w io.Writer, tasks []model.Task, format string) error {
	if tasks == nil {
		tasks = []model.Task{}
	}

	switch format {
	case FormatJSON, "":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return errors.WithStack(encoder.Encode(tasks))

	case FormatYAML:
		exported := make([]exportedTask, 0, len(tasks))
		for _, t := range tasks {
			e := exportedTask{
				ID:        string(t.ID()),
				Text:      t.Text,
				Completed: t.Completed,
				Priority:  string(t.Priority),
				State:     t.Identity.State().String(),
				CreatedAt: t.CreatedAt.UTC(),
			}
			if t.Identity.Linked() {
				e.LocalID = t.Identity.Local
			}
			exported = append(exported, e)
		}

		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(exported); err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(encoder.Close())

	default:
		return errors.Errorf("unknown export format '%s'", format)
	}
}
