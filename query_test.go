package wmi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Win32_Process struct {
	Name      string
	ProcessID uint32 `wmi:"ProcessId"`
	Ignored   string `wmi:"-"`
}

func TestCreateQuery(t *testing.T) {
	var dst []Win32_Process
	assert.Equal(t, "SELECT Name, ProcessId FROM Win32_Process ",
		CreateQuery(&dst, ""))
	assert.Equal(t, "SELECT Name, ProcessId FROM Win32_Process WHERE ProcessId = 4",
		CreateQuery(&dst, "WHERE ProcessId = 4"))

	// A non-struct source produces no query.
	var n int
	assert.Equal(t, "", CreateQuery(&n, ""))
}

func TestCreateQueryFrom(t *testing.T) {
	var dst []Win32_Process
	assert.Equal(t, "SELECT Name, ProcessId FROM CIM_Process ",
		CreateQueryFrom(&dst, "CIM_Process", ""))
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "SELECT * FROM Win32_Service", BuildQuery("Win32_Service", nil, nil))

	assert.Equal(t, "SELECT Name, State FROM Win32_Service",
		BuildQuery("Win32_Service", []string{"Name", "State"}, nil))

	// Conditions come out sorted by property name.
	got := BuildQuery("Win32_Service", nil, map[string]FilterValue{
		"Started":   FilterBool(true),
		"ProcessId": FilterNumber(0),
		"Name":      FilterString(`svc"one`),
	})
	assert.Equal(t,
		`SELECT * FROM Win32_Service WHERE Name = "svc\"one" AND ProcessId = 0 AND Started = true`,
		got)
}

func TestBuildQueryFor(t *testing.T) {
	got, err := BuildQueryFor(&[]Win32_Process{}, map[string]FilterValue{
		"Name": FilterString("notepad.exe"),
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT Name, ProcessId FROM Win32_Process WHERE Name = "notepad.exe"`, got)

	var n int
	_, err = BuildQueryFor(&n, nil)
	assert.Error(t, err)
}

func TestBuildNotificationQuery(t *testing.T) {
	got := BuildNotificationQuery("__InstanceCreationEvent",
		map[string]FilterValue{"TargetInstance": FilterIsA("Win32_Process")},
		time.Second)
	assert.Equal(t,
		"SELECT * FROM __InstanceCreationEvent WITHIN 1 WHERE TargetInstance ISA 'Win32_Process'",
		got)

	// Sub-second intervals round up to the smallest WITHIN WMI accepts.
	got = BuildNotificationQuery("__InstanceDeletionEvent", nil, 100*time.Millisecond)
	assert.Equal(t, "SELECT * FROM __InstanceDeletionEvent WITHIN 1", got)

	// Zero means no polling clause at all.
	got = BuildNotificationQuery("Win32_ProcessStartTrace", nil, 0)
	assert.Equal(t, "SELECT * FROM Win32_ProcessStartTrace", got)
}

func TestQuoteWQL(t *testing.T) {
	assert.Equal(t, `""`, QuoteWQL(""))
	assert.Equal(t, `"plain"`, QuoteWQL("plain"))
	assert.Equal(t, `"C:\\Path\\With\"In Name"`, QuoteWQL(`C:\Path\With"In Name`))
}

func TestFilterFloat(t *testing.T) {
	got := BuildQuery("Win32_Processor", nil, map[string]FilterValue{
		"CurrentVoltage": FilterFloat(1.5),
	})
	assert.Equal(t, "SELECT * FROM Win32_Processor WHERE CurrentVoltage = 1.5", got)
}
