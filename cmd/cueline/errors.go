package main

import (
	"errors"
	"fmt"
)

var errResume = errors.New("--resume needs --run")

func errInput(v string) error {
	return fmt.Errorf("unknown --input %q (supported: json, text)", v)
}
