package bot

import "strings"

// Канонические имена команд
const (
	CmdStart     = "start"
	CmdHelp      = "help"
	CmdRegister  = "register"
	CmdLogin     = "login"
	CmdLogout    = "logout"
	CmdBalance   = "balance"
	CmdDeposit   = "deposit"
	CmdWithdraw  = "withdraw"
	CmdTransfer  = "transfer"
	CmdFake      = "fake"
	CmdHistory   = "history"
	CmdStatement = "statement"
	CmdExport    = "export"
)

// aliases — русские синонимы команд.
var aliases = map[string]string{
	"помощь":      CmdHelp,
	"регистрация": CmdRegister,
	"вход":        CmdLogin,
	"выход":       CmdLogout,
	"баланс":      CmdBalance,
	"пополнить":   CmdDeposit,
	"снять":       CmdWithdraw,
	"перевести":   CmdTransfer,
	"симуляция":   CmdFake,
	"история":     CmdHistory,
	"выписка":     CmdStatement,
	"выгрузка":    CmdExport,
}

// sessionCommands — команды, которым нужна открытая сессия.
var sessionCommands = map[string]bool{
	CmdBalance:   true,
	CmdDeposit:   true,
	CmdWithdraw:  true,
	CmdTransfer:  true,
	CmdFake:      true,
	CmdHistory:   true,
	CmdStatement: true,
	CmdExport:    true,
}

// RequiresSession сообщает, нужна ли команде сессия.
func RequiresSession(cmd string) bool {
	return sessionCommands[cmd]
}

// CommandParser парсит команды с префиксами "/", "!" и ".".
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"/", "!", "."},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс @имя_бота отбрасывается, русские синонимы
// приводятся к каноническому имени.
//
// Примеры:
//
//	"/transfer bob 10"     → "transfer", ["bob", "10"]
//	"/balance@ledger_bot"  → "balance", nil
//	"!перевести bob 10"    → "transfer", ["bob", "10"]
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	if command == "" {
		return "", nil, false
	}
	if canonical, ok := aliases[command]; ok {
		command = canonical
	}

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}
