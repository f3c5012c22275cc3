package wmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructToParams(t *testing.T) {
	timeout := uint32(30)
	in := struct {
		CommandLine      string
		CurrentDirectory string `wmi:"-"`
		Flags            uint32 `wmi:"CreationFlags"`
		Timeout          *uint32
		Skipped          *string
	}{
		CommandLine: "notepad.exe",
		Flags:       0x10,
		Timeout:     &timeout,
	}

	params, err := structToParams(&in)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"CommandLine":   "notepad.exe",
		"CreationFlags": uint32(0x10),
		"Timeout":       uint32(30),
	}, params)
}

func TestStructToParamsErrors(t *testing.T) {
	params, err := structToParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)

	_, err = structToParams("not a struct")
	assert.Error(t, err)
}

func TestDecodeParams(t *testing.T) {
	out := map[string]Variant{
		"ReturnValue": VarUI4(0),
		"ProcessId":   VarUI4(1234),
		"Name":        VarString("notepad.exe"),
		"Started":     VarBool(true),
		"Load":        VarR8(0.5),
		"Tags":        VarArray([]Variant{VarString("a"), VarString("b")}),
		"Installed":   VarString("20230615093000.123456+120"),
		"Missing":     VarNull(),
	}

	var dst struct {
		ReturnValue uint32
		ProcessID   uint32 `wmi:"ProcessId"`
		Name        string
		Started     bool
		Load        float64
		Tags        []string
		Installed   time.Time
		Missing     *uint32
		Absent      int
	}
	require.NoError(t, decodeParams(out, &dst))

	assert.Equal(t, uint32(0), dst.ReturnValue)
	assert.Equal(t, uint32(1234), dst.ProcessID)
	assert.Equal(t, "notepad.exe", dst.Name)
	assert.True(t, dst.Started)
	assert.Equal(t, 0.5, dst.Load)
	assert.Equal(t, []string{"a", "b"}, dst.Tags)
	assert.Equal(t, "20230615093000.123456+120", FormatCIMDatetime(dst.Installed))
	assert.Nil(t, dst.Missing, "null values leave the field alone")
	assert.Zero(t, dst.Absent)
}

func TestDecodeParamsMismatch(t *testing.T) {
	out := map[string]Variant{"ProcessId": VarString("not a number")}
	var dst struct{ ProcessId uint32 }

	err := decodeParams(out, &dst)
	require.Error(t, err)
	_, ok := err.(ErrFieldMismatch)
	assert.True(t, ok, "expected ErrFieldMismatch, got %T", err)

	assert.Error(t, decodeParams(out, nil))
	assert.Error(t, decodeParams(out, dst))
}
