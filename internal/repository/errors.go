package repository

import "errors"

// ErrNotFound 目标行不存在或不属于当前用户
var ErrNotFound = errors.New("record not found")
