package io

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Queue errors
	ErrQueueFull = errors.New(f("key queue full"))
)
