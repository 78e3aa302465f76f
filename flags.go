package main

import (
	"strconv"
	"strings"
)

// optFloat is a flag value that records whether it was set, so absent
// flags stay off the wire instead of sending a zero.
type optFloat struct {
	value float64
	set   bool
}

func (f *optFloat) String() string {
	if !f.set {
		return ""
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

func (f *optFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.value = v
	f.set = true
	return nil
}

func (f optFloat) assign(dst **float64) {
	if f.set {
		v := f.value
		*dst = &v
	}
}

// optBool behaves like optFloat for booleans.
type optBool struct {
	value bool
	set   bool
}

func (b *optBool) String() string {
	if !b.set {
		return ""
	}
	return strconv.FormatBool(b.value)
}

func (b *optBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.value = v
	b.set = true
	return nil
}

func (b *optBool) IsBoolFlag() bool { return true }

func (b optBool) assign(dst **bool) {
	if b.set {
		v := b.value
		*dst = &v
	}
}

// uint32Value rejects values outside [0, 2^32) at parse time instead of
// silently truncating.
type uint32Value uint32

func (v *uint32Value) String() string {
	return strconv.FormatUint(uint64(*v), 10)
}

func (v *uint32Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return err
	}
	*v = uint32Value(n)
	return nil
}

// stringList collects repeated occurrences of a flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}
