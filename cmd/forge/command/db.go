// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package command

import "github.com/spf13/cobra"

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Engine database management actions",
	Long: `Engine database management actions can be chosen by
sub-commands. For fresh installation in a development or production
environment, the init-dev or init-prod may be used and for upgrade or
downgrade from an existing installation, the migrate may be used.`,
}

// credsRenewalMessage describes the roles passwords renewal behavior
// which is shared among the database initialization and migration
// sub-commands.
const credsRenewalMessage = `
The admin and normal roles passwords will be renewed during this
operation. Fresh passwords are first written into the .pgpass.new file
in the pass-dir directory (as specified by the config file) and after
they took effect in the DBMS, that file is moved over the .pgpass file
atomically, so an abrupt failure can be recovered by retrying with
either one of the old or new passwords files.`

func init() {
	rootCmd.AddCommand(dbCmd)
}
