package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"library-management/config"
	"library-management/library"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var mgr *library.Manager

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "library",
		Short:         "Library catalog, membership and loan management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			m, err := library.NewManager(cfg.DatabasePath)
			if err != nil {
				// A store failure must abort startup, it is never a domain error.
				return fmt.Errorf("opening store: %w", err)
			}
			mgr = m
			return mgr.Bootstrap(cmd.Context(), cfg.DefaultPassword)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return mgr.Close()
		},
	}
	root.AddCommand(userCmd(), bookCmd(), loanCmd(), authCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readSecret reads a masked secret from the terminal.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(raw)), nil
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}

// ------------------ user commands ------------------

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage members"}

	var u library.User
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a new member",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Users.Register(c.Context(), u); err != nil {
				return err
			}
			fmt.Printf("Registered member %s (%s %s)\n", u.ID, u.Name, u.Surname)
			return nil
		},
	}
	register.Flags().StringVar(&u.ID, "id", "", "member id (matricola)")
	register.Flags().StringVar(&u.Email, "email", "", "institutional email")
	register.Flags().StringVar(&u.Name, "name", "", "first name")
	register.Flags().StringVar(&u.Surname, "surname", "", "surname")
	register.MarkFlagRequired("id")
	register.MarkFlagRequired("email")

	var idFrag, emailFrag, namePart, surnamePart string
	list := &cobra.Command{
		Use:   "list",
		Short: "List members, optionally filtered by infix",
		RunE: func(c *cobra.Command, _ []string) error {
			var (
				users []library.User
				err   error
			)
			switch {
			case emailFrag != "":
				users, err = mgr.Users.GetAllByEmailContaining(c.Context(), emailFrag)
			case namePart != "" || surnamePart != "":
				users, err = mgr.Users.GetAllByFullNameContaining(c.Context(), namePart, surnamePart)
			default:
				users, err = mgr.Users.GetAllByIDContaining(c.Context(), idFrag)
			}
			if err != nil {
				return err
			}
			if len(users) == 0 {
				fmt.Println("No members found.")
				return nil
			}
			fmt.Printf("%-12s %-30s %-20s %-20s\n", "ID", "Email", "Name", "Surname")
			fmt.Println(strings.Repeat("-", 85))
			for _, m := range users {
				fmt.Printf("%-12s %-30s %-20s %-20s\n",
					m.ID, truncateString(m.Email, 30), truncateString(m.Name, 20), truncateString(m.Surname, 20))
			}
			return nil
		},
	}
	list.Flags().StringVar(&idFrag, "id-contains", "", "filter by id fragment")
	list.Flags().StringVar(&emailFrag, "email-contains", "", "filter by email fragment")
	list.Flags().StringVar(&namePart, "name-contains", "", "filter by name fragment")
	list.Flags().StringVar(&surnamePart, "surname-contains", "", "filter by surname fragment")

	var upd library.User
	update := &cobra.Command{
		Use:   "update",
		Short: "Update a member's email, name and surname",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Users.UpdateByID(c.Context(), upd); err != nil {
				return err
			}
			fmt.Printf("Updated member %s\n", upd.ID)
			return nil
		},
	}
	update.Flags().StringVar(&upd.ID, "id", "", "member id (immutable)")
	update.Flags().StringVar(&upd.Email, "email", "", "new email")
	update.Flags().StringVar(&upd.Name, "name", "", "new first name")
	update.Flags().StringVar(&upd.Surname, "surname", "", "new surname")
	update.MarkFlagRequired("id")

	var removeID string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a member without active loans",
		RunE: func(c *cobra.Command, _ []string) error {
			removed, err := mgr.RemoveUser(c.Context(), removeID)
			if errors.Is(err, library.ErrUserHasActiveLoans) {
				return fmt.Errorf("member %s still holds active loans, complete them first", removeID)
			}
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("No member with id %s\n", removeID)
				return nil
			}
			fmt.Printf("Removed member %s\n", removeID)
			return nil
		},
	}
	remove.Flags().StringVar(&removeID, "id", "", "member id")
	remove.MarkFlagRequired("id")

	cmd.AddCommand(register, list, update, remove)
	return cmd
}

// ------------------ book commands ------------------

func bookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage the catalog"}

	var b library.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Books.Add(c.Context(), b); err != nil {
				return err
			}
			fmt.Printf("Added %q (%s), %d copies\n", b.Title, b.ISBN, b.TotalCopies)
			return nil
		},
	}
	add.Flags().StringVar(&b.ISBN, "isbn", "", "isbn")
	add.Flags().StringVar(&b.Title, "title", "", "title")
	add.Flags().StringVar(&b.Author, "author", "", "author")
	add.Flags().StringVar(&b.Genre, "genre", "", "genre")
	add.Flags().StringVar(&b.Description, "description", "", "description")
	add.Flags().IntVar(&b.ReleaseYear, "year", 0, "release year")
	add.Flags().IntVar(&b.TotalCopies, "copies", 1, "total copies")
	add.MarkFlagRequired("isbn")
	add.MarkFlagRequired("title")

	var authorFrag, genreFrag, titleFrag string
	var year int
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries, optionally filtered",
		RunE: func(c *cobra.Command, _ []string) error {
			var (
				books []library.Book
				err   error
			)
			switch {
			case authorFrag != "":
				books, err = mgr.Books.GetAllByAuthorContaining(c.Context(), authorFrag)
			case genreFrag != "":
				books, err = mgr.Books.GetAllByGenreContaining(c.Context(), genreFrag)
			case titleFrag != "":
				books, err = mgr.Books.GetAllByTitleContaining(c.Context(), titleFrag)
			case c.Flags().Changed("year"):
				books, err = mgr.Books.GetAllByReleaseYear(c.Context(), year)
			default:
				books, err = mgr.Books.GetAll(c.Context())
			}
			if err != nil {
				return err
			}
			if len(books) == 0 {
				fmt.Println("No books found.")
				return nil
			}
			fmt.Printf("%-15s %-30s %-25s %-15s %-6s %s\n", "ISBN", "Title", "Author", "Genre", "Year", "Copies")
			fmt.Println(strings.Repeat("-", 105))
			for _, bk := range books {
				fmt.Printf("%-15s %-30s %-25s %-15s %-6d %d/%d\n",
					bk.ISBN, truncateString(bk.Title, 30), truncateString(bk.Author, 25),
					truncateString(bk.Genre, 15), bk.ReleaseYear, bk.RemainingCopies, bk.TotalCopies)
			}
			return nil
		},
	}
	list.Flags().StringVar(&authorFrag, "author-contains", "", "filter by author fragment")
	list.Flags().StringVar(&genreFrag, "genre-contains", "", "filter by genre fragment")
	list.Flags().StringVar(&titleFrag, "title-contains", "", "filter by title fragment")
	list.Flags().IntVar(&year, "year", 0, "filter by exact release year")

	var upd library.Book
	update := &cobra.Command{
		Use:   "update",
		Short: "Update a catalog entry (isbn is immutable)",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Books.UpdateByISBN(c.Context(), upd); err != nil {
				return err
			}
			fmt.Printf("Updated book %s\n", upd.ISBN)
			return nil
		},
	}
	update.Flags().StringVar(&upd.ISBN, "isbn", "", "isbn (immutable)")
	update.Flags().StringVar(&upd.Title, "title", "", "title")
	update.Flags().StringVar(&upd.Author, "author", "", "author")
	update.Flags().StringVar(&upd.Genre, "genre", "", "genre")
	update.Flags().StringVar(&upd.Description, "description", "", "description")
	update.Flags().IntVar(&upd.ReleaseYear, "year", 0, "release year")
	update.Flags().IntVar(&upd.TotalCopies, "total", 0, "total copies")
	update.Flags().IntVar(&upd.RemainingCopies, "remaining", 0, "remaining copies")
	update.MarkFlagRequired("isbn")

	var removeISBN string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a book with no copies on loan",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Books.RemoveByISBN(c.Context(), removeISBN); err != nil {
				if errors.Is(err, library.ErrMissingBookCopies) {
					return fmt.Errorf("book %s has copies out on loan and cannot be removed", removeISBN)
				}
				return err
			}
			fmt.Printf("Removed book %s\n", removeISBN)
			return nil
		},
	}
	remove.Flags().StringVar(&removeISBN, "isbn", "", "isbn")
	remove.MarkFlagRequired("isbn")

	var copiesISBN string
	copies := &cobra.Command{
		Use:   "copies",
		Short: "Show the remaining copies for an isbn",
		RunE: func(c *cobra.Command, _ []string) error {
			remaining, err := mgr.Books.CountRemainingCopies(c.Context(), copiesISBN)
			if err != nil {
				return err
			}
			fmt.Printf("%d cop(ies) of %s on the shelf\n", remaining, copiesISBN)
			return nil
		},
	}
	copies.Flags().StringVar(&copiesISBN, "isbn", "", "isbn")
	copies.MarkFlagRequired("isbn")

	cmd.AddCommand(add, list, update, remove, copies)
	return cmd
}

// ------------------ loan commands ------------------

func loanCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Manage loans"}

	var userID, isbn string
	var days int
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a loan for a member and a book",
		RunE: func(c *cobra.Command, _ []string) error {
			start := time.Now()
			loan, err := mgr.Loans.Register(c.Context(), userID, isbn, start, start.AddDate(0, 0, days))
			if err != nil {
				return err
			}
			fmt.Printf("Loan registered, due %s\n", loan.Deadline.Format("2006-01-02"))
			return nil
		},
	}
	register.Flags().StringVar(&userID, "user", "", "member id")
	register.Flags().StringVar(&isbn, "isbn", "", "isbn")
	register.Flags().IntVar(&days, "days", 30, "loan period in days")
	register.MarkFlagRequired("user")
	register.MarkFlagRequired("isbn")

	var cUserID, cISBN string
	complete := &cobra.Command{
		Use:   "complete",
		Short: "Complete the active loan for a member and a book",
		RunE: func(c *cobra.Command, _ []string) error {
			if err := mgr.Loans.Complete(c.Context(), cUserID, cISBN, time.Now()); err != nil {
				return err
			}
			fmt.Println("Loan completed, copy back on the shelf")
			return nil
		},
	}
	complete.Flags().StringVar(&cUserID, "user", "", "member id")
	complete.Flags().StringVar(&cISBN, "isbn", "", "isbn")
	complete.MarkFlagRequired("user")
	complete.MarkFlagRequired("isbn")

	var lUserID, lISBN string
	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		RunE: func(c *cobra.Command, _ []string) error {
			var (
				loans []library.Loan
				err   error
			)
			switch {
			case lUserID != "" && lISBN != "":
				loans, err = mgr.Loans.GetByUserIDAndBookISBN(c.Context(), lUserID, lISBN)
			case lUserID != "":
				loans, err = mgr.Loans.GetByUserID(c.Context(), lUserID)
			case lISBN != "":
				loans, err = mgr.Loans.GetByBookISBN(c.Context(), lISBN)
			case activeOnly:
				loans, err = mgr.Loans.GetAllActive(c.Context())
			default:
				loans, err = mgr.Loans.GetAll(c.Context())
			}
			if err != nil {
				return err
			}
			if len(loans) == 0 {
				fmt.Println("No loans found.")
				return nil
			}
			fmt.Printf("%-12s %-15s %-12s %-12s %-12s\n", "Member", "ISBN", "Start", "Deadline", "End")
			fmt.Println(strings.Repeat("-", 70))
			for _, l := range loans {
				end := "-"
				if l.End != nil {
					end = l.End.Format("2006-01-02")
				}
				fmt.Printf("%-12s %-15s %-12s %-12s %-12s\n",
					l.UserID, l.BookISBN, l.Start.Format("2006-01-02"), l.Deadline.Format("2006-01-02"), end)
			}
			return nil
		},
	}
	list.Flags().StringVar(&lUserID, "user", "", "filter by member id")
	list.Flags().StringVar(&lISBN, "isbn", "", "filter by isbn")
	list.Flags().BoolVar(&activeOnly, "active", false, "only active loans")

	cmd.AddCommand(register, complete, list)
	return cmd
}

// ------------------ auth commands ------------------

func authCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Manage librarian credentials"}

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Set the password and the three security answers",
		RunE: func(c *cobra.Command, _ []string) error {
			password, err := readSecret("New password: ")
			if err != nil {
				return err
			}
			answers := make([]string, 3)
			for i := range answers {
				if answers[i], err = readSecret(fmt.Sprintf("Security answer %d: ", i+1)); err != nil {
					return err
				}
			}
			if err := mgr.Auth.Setup(c.Context(), password, answers[0], answers[1], answers[2]); err != nil {
				return err
			}
			fmt.Println("Credentials configured.")
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Verify the librarian password",
		RunE: func(c *cobra.Command, _ []string) error {
			password, err := readSecret("Password: ")
			if err != nil {
				return err
			}
			ok, err := mgr.Auth.CheckPassword(c.Context(), password)
			if errors.Is(err, library.ErrPasswordUnset) {
				return errors.New("no password configured yet, run 'auth setup' first")
			}
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("Password correct.")
			} else {
				fmt.Println("Password incorrect.")
			}
			return nil
		},
	}

	changePassword := &cobra.Command{
		Use:   "change-password",
		Short: "Change the librarian password",
		RunE: func(c *cobra.Command, _ []string) error {
			password, err := readSecret("New password: ")
			if err != nil {
				return err
			}
			if err := mgr.Auth.ChangePassword(c.Context(), password); err != nil {
				return err
			}
			fmt.Println("Password changed.")
			return nil
		},
	}

	var checkNumber int
	checkAnswer := &cobra.Command{
		Use:   "check-answer",
		Short: "Verify one security answer",
		RunE: func(c *cobra.Command, _ []string) error {
			answer, err := readSecret(fmt.Sprintf("Answer %d: ", checkNumber))
			if err != nil {
				return err
			}
			ok, err := mgr.Auth.CheckAnswer(c.Context(), answer, checkNumber)
			if errors.Is(err, library.ErrAnswerUnset) {
				return errors.New("that answer slot was never configured")
			}
			if err != nil {
				return err
			}
			if ok {
				fmt.Println("Answer correct.")
			} else {
				fmt.Println("Answer incorrect.")
			}
			return nil
		},
	}
	checkAnswer.Flags().IntVar(&checkNumber, "number", 1, "answer slot (1-3)")

	var changeNumber int
	changeAnswer := &cobra.Command{
		Use:   "change-answer",
		Short: "Change one security answer",
		RunE: func(c *cobra.Command, _ []string) error {
			answer, err := readSecret(fmt.Sprintf("New answer %d: ", changeNumber))
			if err != nil {
				return err
			}
			if err := mgr.Auth.ChangeAnswer(c.Context(), answer, changeNumber); err != nil {
				if errors.Is(err, library.ErrAnswerUnset) {
					return errors.New("credentials were never configured, run 'auth setup' first")
				}
				return err
			}
			fmt.Println("Answer changed.")
			return nil
		},
	}
	changeAnswer.Flags().IntVar(&changeNumber, "number", 1, "answer slot (1-3)")

	cmd.AddCommand(setup, check, changePassword, checkAnswer, changeAnswer)
	return cmd
}
