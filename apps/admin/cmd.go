package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/ebd/core/class"
	"github.com/trezcool/ebd/core/dashboard"
	"github.com/trezcool/ebd/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc   *user.Service
	classSvc *class.Service
	dashSvc  *dashboard.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  resetpassword -name NAME - reset user's password")
	fmt.Println("  addeditor -name NAME [-email EMAIL] - create an editor")
	fmt.Println("  exportattendance -class CLASS_ID -out FILE.csv|FILE.xlsx - export a class attendance report")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordName := resetPasswordCmd.String("name", "", "The user's name. The password will be prompted next.")

	addEditorCmd := flag.NewFlagSet("addeditor", flag.ContinueOnError)
	addEditorName := addEditorCmd.String("name", "", "The editor's name. The password will be prompted next.")
	addEditorEmail := addEditorCmd.String("email", "", "The editor's email.")

	exportCmd := flag.NewFlagSet("exportattendance", flag.ContinueOnError)
	exportClass := exportCmd.String("class", "", "The class id.")
	exportOut := exportCmd.String("out", "", "The report file; its extension picks the format: .csv or .xlsx.")

	switch args[1] {
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordName == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordName, pwd)
	case "addeditor":
		if err := addEditorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addEditorName == "" {
			addEditorCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addEditorCmd.Usage()
			return errHelp
		}
		return cli.addEditor(*addEditorName, *addEditorEmail, pwd)
	case "exportattendance":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportClass == "" || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportAttendance(*exportClass, *exportOut)
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
