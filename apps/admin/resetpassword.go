package main

import (
	"context"

	"github.com/trezcool/ebd/core"
)

func (cli *commandLine) resetPassword(name, pwd string) error {
	return cli.usrSvc.ResetPassword(context.Background(), core.CleanString(name), pwd)
}
