package app

import (
	"context"

	"github.com/moyu-x/file-sorter/pkg/undo"
)

type UndoOptions struct {
	CommonOptions
	Count int
}

// RunUndo 撤销最近 Count 次移动
func RunUndo(ctx context.Context, opts *UndoOptions) (*undo.Result, error) {
	env, err := setup(&opts.CommonOptions)
	if err != nil {
		return nil, err
	}

	log, err := env.openLog()
	if err != nil {
		return nil, err
	}
	defer log.Close()

	return undo.New(env.fs, log).Undo(ctx, opts.Count)
}
