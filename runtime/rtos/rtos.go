// Package rtos backs the os module in generated programs.
package rtos

import (
	"fmt"
	"os"

	"auriga/runtime/rtval"
)

func Getenv(key string) string {
	return os.Getenv(key)
}

func Getcwd() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("getcwd: %v", err))
	}
	return wd
}

// Listdir returns directory entries as a boxed list of names.
func Listdir(path string) rtval.Value {
	entries, err := os.ReadDir(path)
	if err != nil {
		panic(fmt.Sprintf("listdir: %v", err))
	}
	out := make([]rtval.Value, len(entries))
	for i, e := range entries {
		out[i] = rtval.Str(e.Name())
	}
	return rtval.List(out...)
}

func Remove(path string) {
	if err := os.Remove(path); err != nil {
		panic(fmt.Sprintf("remove: %v", err))
	}
}
