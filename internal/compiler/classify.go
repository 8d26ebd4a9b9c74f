package compiler

import "github.com/roach88/puresh/internal/ir"

// Effect classes assigned by command name.
var (
	effReadOnly   = ir.NewEffectSet(ir.FileRead)
	effFileMutate = ir.NewEffectSet(ir.FileWrite, ir.SystemModification)
	effNetwork    = ir.NewEffectSet(ir.NetworkAccess, ir.FileWrite)
	effProcess    = ir.NewEffectSet(ir.SystemModification, ir.ProcessExec)
	effEnv        = ir.NewEffectSet(ir.EnvRead)
	effUnknown    = ir.NewEffectSet(ir.ProcessExec)
)

// commandEffects is the static command classifier. It is read-only after
// package initialization.
var commandEffects = map[string]ir.EffectSet{
	// builtins without side effects
	"echo":   ir.PureSet,
	"printf": ir.PureSet,
	"true":   ir.PureSet,
	":":      ir.PureSet,
	"false":  ir.PureSet,
	"test":   effReadOnly,
	"[":      effReadOnly,
	"shift":  ir.PureSet,
	"set":    ir.PureSet,
	"unset":  ir.PureSet,
	"export": ir.PureSet,
	"local":  ir.PureSet,
	"return": ir.PureSet,
	"read":   effReadOnly,

	// read-only file access
	"cat":       effReadOnly,
	"ls":        effReadOnly,
	"grep":      effReadOnly,
	"egrep":     effReadOnly,
	"fgrep":     effReadOnly,
	"head":      effReadOnly,
	"tail":      effReadOnly,
	"wc":        effReadOnly,
	"find":      effReadOnly,
	"stat":      effReadOnly,
	"file":      effReadOnly,
	"diff":      effReadOnly,
	"cmp":       effReadOnly,
	"sort":      effReadOnly,
	"uniq":      effReadOnly,
	"cut":       effReadOnly,
	"tr":        effReadOnly,
	"awk":       effReadOnly,
	"sed":       effReadOnly,
	"readlink":  effReadOnly,
	"realpath":  effReadOnly,
	"basename":  ir.PureSet,
	"dirname":   ir.PureSet,
	"sha256sum": effReadOnly,
	"md5sum":    effReadOnly,
	"od":        effReadOnly,
	"shuf":      effReadOnly,

	// filesystem mutation
	"mkdir":    effFileMutate,
	"rmdir":    effFileMutate,
	"rm":       effFileMutate,
	"cp":       effFileMutate,
	"mv":       effFileMutate,
	"ln":       effFileMutate,
	"touch":    effFileMutate,
	"chmod":    effFileMutate,
	"chown":    effFileMutate,
	"chgrp":    effFileMutate,
	"tee":      effFileMutate,
	"tar":      effFileMutate,
	"unzip":    effFileMutate,
	"dd":       effFileMutate,
	"install":  effFileMutate,
	"mktemp":   effFileMutate,
	"truncate": effFileMutate,

	// network
	"curl":  effNetwork,
	"wget":  effNetwork,
	"scp":   effNetwork,
	"rsync": effNetwork,
	"ssh":   effNetwork,
	"git":   effNetwork,
	"nc":    effNetwork,

	// process control
	"kill":      effProcess,
	"pkill":     effProcess,
	"killall":   effProcess,
	"systemctl": effProcess,
	"service":   effProcess,
	"nohup":     effProcess,
	"sudo":      effProcess,
	"su":        effProcess,
	"exec":      effProcess,
	"eval":      effProcess,
	"source":    effProcess,
	".":         effProcess,
	"sh":        effProcess,
	"bash":      effProcess,
	"dash":      effProcess,
	"xargs":     effProcess,
	"trap":      effProcess,
	"ulimit":    effProcess,
	"wait":      effProcess,
	"sleep":     effProcess,
	"reboot":    effProcess,
	"shutdown":  effProcess,

	// environment queries
	"date":     effEnv,
	"env":      effEnv,
	"printenv": effEnv,
	"hostname": effEnv,
	"whoami":   effEnv,
	"id":       effEnv,
	"uname":    effEnv,
	"pwd":      effEnv,
	"uuidgen":  effEnv,
	"command":  effEnv,
	"which":    effEnv,
	"cd":       effEnv,
}

// ClassifyCommand returns the effects of running the named command. Unknown
// commands are assumed to execute an arbitrary process.
func ClassifyCommand(name string) ir.EffectSet {
	if e, ok := commandEffects[name]; ok {
		return e
	}
	return effUnknown
}
