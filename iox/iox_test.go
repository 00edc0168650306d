package iox

import (
	"errors"
	"testing"
)

type fakeCloser struct {
	err    error
	closed bool
}

func (f *fakeCloser) Close() error {
	f.closed = true
	return f.err
}

func TestDiscardClose(t *testing.T) {
	c := &fakeCloser{err: errors.New("boom")}
	DiscardClose(c)
	if !c.closed {
		t.Error("expected Close to be called")
	}
}

func TestCloseFunc(t *testing.T) {
	c := &fakeCloser{}
	fn := CloseFunc(c)
	if c.closed {
		t.Fatal("CloseFunc should not close eagerly")
	}
	fn()
	if !c.closed {
		t.Error("expected Close to be called after invoking returned func")
	}
}

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Error("expected fn to be called")
	}
}
