package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daybook-app/daybook/internal/model"
	"github.com/daybook-app/daybook/internal/ui"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or edit your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		p := c.Profile()
		if p == nil {
			fmt.Println(ui.Muted("no profile set; run 'daybook profile set'"))
			return nil
		}
		fmt.Println(ui.Title(p.Name) + " " + ui.Muted("@"+p.Username))
		if p.VerificationType != model.VerificationNone {
			fmt.Println(ui.Accent("verified: " + string(p.VerificationType)))
		}
		if p.Bio != "" {
			fmt.Println(p.Bio)
		}
		if p.Organization != "" {
			fmt.Println(ui.Muted("org: " + p.Organization))
		}
		return nil
	},
}

var (
	profileName string
	profileUser string
	profileBio  string
	profileOrg  string
)

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set profile fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		c, err := newController(ctx, s)
		if err != nil {
			return err
		}

		p := c.Profile()
		if p == nil {
			p = &model.UserProfile{VerificationType: model.VerificationNone}
		}
		if cmd.Flags().Changed("name") {
			p.Name = profileName
		}
		if cmd.Flags().Changed("username") {
			p.Username = profileUser
		}
		if cmd.Flags().Changed("bio") {
			p.Bio = profileBio
		}
		if cmd.Flags().Changed("org") {
			p.Organization = profileOrg
		}

		if err := c.SetProfile(ctx, *p); err != nil {
			return err
		}
		fmt.Println(ui.Success("profile updated"))
		return nil
	},
}

func init() {
	profileSetCmd.Flags().StringVar(&profileName, "name", "", "display name")
	profileSetCmd.Flags().StringVar(&profileUser, "username", "", "handle")
	profileSetCmd.Flags().StringVar(&profileBio, "bio", "", "short bio")
	profileSetCmd.Flags().StringVar(&profileOrg, "org", "", "organization")
	profileCmd.AddCommand(profileShowCmd, profileSetCmd)
}
