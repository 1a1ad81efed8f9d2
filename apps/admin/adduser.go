package main

import (
	"github.com/orishlabs/orish/core/user"
)

// addUser creates a user, granting all roles when isAdmin is set.
func (cli *commandLine) addUser(name, uname, email, pwd string, isAdmin bool) error {
	roles := user.StudentRoles
	if isAdmin {
		roles = user.AllRoles
	}
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	}
	if err := nu.Validate(cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(nu)
	if err != nil {
		return err
	}
	logger.Printf("created user %s (%s)", usr.Name, usr.ID)
	return nil
}
