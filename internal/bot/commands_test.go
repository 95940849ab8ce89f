package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text  string
		cmd   string
		args  []string
		isCmd bool
	}{
		{"/balance", CmdBalance, nil, true},
		{"  /transfer bob 10  ", CmdTransfer, []string{"bob", "10"}, true},
		{"/Balance@ledger_bot", CmdBalance, nil, true},
		{"!перевести bob 10", CmdTransfer, []string{"bob", "10"}, true},
		{".выписка 2026-09", CmdStatement, []string{"2026-09"}, true},
		{"/", "", nil, false},
		{"/@ledger_bot", "", nil, false},
		{"привет", "", nil, false},
		{"", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.text)
		assert.Equal(t, tt.isCmd, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}

func TestRequiresSession(t *testing.T) {
	for _, cmd := range []string{CmdBalance, CmdDeposit, CmdWithdraw, CmdTransfer, CmdFake, CmdHistory, CmdStatement, CmdExport} {
		assert.True(t, RequiresSession(cmd), cmd)
	}
	for _, cmd := range []string{CmdStart, CmdHelp, CmdRegister, CmdLogin, CmdLogout, "unknown"} {
		assert.False(t, RequiresSession(cmd), cmd)
	}
}
