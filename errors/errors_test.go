package errors

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	errA = New("a")
	errB = New("b\nsecond line")
	errC = New("c")
)

func TestAppendFlattens(t *testing.T) {
	var errs Errors
	errs = errs.Append(nil, errA)
	errs = errs.Append(Errors{errB, nil, Errors{errC}})
	assert.Equal(t, Errors{errA, errB, errC}, errs)
}

func TestReturn(t *testing.T) {
	assert.Nil(t, Errors{}.Return())
	assert.Nil(t, Errors(nil).Return())
	assert.Equal(t, Errors{errA}, Errors{errA}.Return())
}

func TestUnion(t *testing.T) {
	assert.Nil(t, Union())
	assert.Nil(t, Union(nil, Errors{}))
	assert.Equal(t, Errors{errA, errB, errC}, Union(errA, Errors{errB}, nil, errC))
}

func TestError(t *testing.T) {
	assert.Equal(t, "no errors", Errors{}.Error())
	assert.Equal(t, "a", Errors{errA}.Error())
	assert.Equal(t, "2 errors:\n\ta\n\tb\n\tsecond line", Errors{errA, errB}.Error())
}

func TestIsAs(t *testing.T) {
	err := Union(errA, errB)
	assert.True(t, Is(err, errB))
	assert.False(t, Is(err, errC))
	assert.True(t, Is(Errors{Errors{errC}}, errC))

	var target *strings.Reader
	assert.False(t, As(err, &target))
	assert.True(t, Is(Union(io.EOF), io.EOF))
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	Log(l, "decode", Union(errA, errC), "path", "x.stage")
	assert.Equal(t, 2, strings.Count(buf.String(), "msg=decode"))
	assert.Contains(t, buf.String(), "path=x.stage")
	assert.Contains(t, buf.String(), "err=c")

	buf.Reset()
	Log(l, "decode", nil)
	assert.Empty(t, buf.String())
}
