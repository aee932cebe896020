package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"muralhub/internal/engine/claims"
	"muralhub/internal/pkg/validator"
	"muralhub/internal/platform/repositories"
)

type checkReport struct {
	Outcome claims.Outcome `json:"outcome"`
	Match   claims.Match   `json:"match"`
}

func checkCmd(a *app) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show the claim outcome for an organization name and email",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			orgRepo := repositories.NewOrganizationRepository(db)
			userRepo := repositories.NewUserRepository(db)
			svc := claims.NewService(orgRepo, userRepo, validator.NewDomainSet(a.cfg.Claims.GenericEmailDomains...), a.cfg.Claims.SupportContactURL, nil)

			outcome, match, err := svc.Explain(cmd.Context(), name, email)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(checkReport{Outcome: outcome, Match: match})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Organization name")
	cmd.Flags().StringVar(&email, "email", "", "Email of the person signing up")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
