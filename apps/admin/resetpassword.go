package main

import (
	"github.com/orishlabs/orish/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err := uu.Validate(usr, cli.usrSvc); err != nil {
		return err
	}
	if _, err := cli.usrSvc.Update(usr.ID, uu); err != nil {
		return err
	}
	logger.Printf("password reset for %s", usr.Username)
	return nil
}
