package repository

import "errors"

var (
	ErrNotFound  = errors.New("task not found")
	ErrEmptyName = errors.New("task name is empty")
)
