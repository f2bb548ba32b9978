package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/agentdesk/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the AgentDesk database",
		Long:  "Connects to the configured database (sqlite or mysql) and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	switch cfg.Database.Driver {
	case "mysql":
		fmt.Fprintf(out, "Connected to MySQL at %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	default:
		fmt.Fprintf(out, "Opened sqlite database %s\n", cfg.Database.Path)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nAgentDesk database initialized successfully.")
	return nil
}
