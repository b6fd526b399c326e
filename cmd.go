package main

import "github.com/odontosoft/clinicvault/config"

type Command struct {
	DataDir string `help:"data directory holding the clinic database and images (default: auto-detected)" short:"d"`

	Backup struct {
		Assets  bool                `help:"bundle the dental image tree into the backup" short:"a"`
		Dest    string              `help:"write the artifact to this path instead of the backup directory" short:"D"`
		MaxSize config.SizeArgument `help:"warn when the produced artifact exceeds this size"`
	} `cmd:"" help:"Create a verified backup of the clinic database."`

	Restore struct {
		Path string `arg:"" help:"backup artifact to restore (.db, .zip or legacy .json)"`
	} `cmd:"" help:"Restore the clinic from a backup, rolling back on failure."`

	List struct{} `cmd:"" help:"List registered backups, newest first."`

	Delete struct {
		Name string `arg:"" help:"backup name as shown by list"`
	} `cmd:"" help:"Delete a backup and its file."`

	Prune struct {
		Keep int `help:"number of newest backups to keep" default:"10"`
	} `cmd:"" help:"Delete all but the newest backups."`

	Verify struct {
		Path string `arg:"" help:"backup artifact to verify"`
	} `cmd:"" help:"Check a backup artifact for structural soundness."`

	Sync struct{} `cmd:"" help:"Adopt image files on disk that have no metadata record."`

	Daemon struct {
		Config string `help:"schedule config file path" short:"c" required:""`
	} `cmd:"" help:"Run scheduled automatic backups."`
}
