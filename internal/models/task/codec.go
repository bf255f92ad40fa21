package task

import (
	"encoding/json"
	"fmt"
)

// MarshalList serializes the whole collection as one JSON array,
// keeping the order of tasks.
func MarshalList(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	blob, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode task list: %w", err)
	}
	return blob, nil
}

// UnmarshalList is the inverse of MarshalList. An empty blob decodes
// to an empty collection.
func UnmarshalList(blob []byte) ([]Task, error) {
	tasks := []Task{}
	if len(blob) == 0 {
		return tasks, nil
	}
	if err := json.Unmarshal(blob, &tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}
