package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"messenger/domain"
	"messenger/errors"
	"messenger/services"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

var errUsage = stderrors.New("invalid usage")

const usage = `Usage: messenger <command> [flags]

Commands:
  person add --name NAME --email EMAIL   register a person
  person list                            list every person
  send    --from EMAIL --to EMAIL --subject S --content C [--parent ID] [--silent]
  reply   --from EMAIL --parent ID --content C [--subject S] [--silent]
  inbox   --as EMAIL [--cursor C]        received messages
  sent    --as EMAIL [--cursor C]        sent messages
  trash   --as EMAIL [--cursor C]        trashed messages
  delete  --as EMAIL --id ID             move a message to the trash
  untrash --as EMAIL --id ID             move a message back to the mailbox
  read    --as EMAIL --id ID             show a message, marking it as read
  replies --id ID [--cursor C]           replies to a message
  unread  --as EMAIL                     number of unread messages
  search  --as EMAIL QUERY               full-text search, e.g. invoice --in subject --limit 5
  inspect                                browse the raw store over HTTP
`

func printUsage(w io.Writer) {
	fmt.Fprint(w, usage)
}

type cli struct {
	messages  services.IMessageService
	persons   services.IPersonService
	inspector http.Handler
	debugAddr string
	log       *slog.Logger
	out       io.Writer
}

func (c *cli) execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printUsage(c.out)
		return errUsage
	}
	command, args := args[0], args[1:]
	switch command {
	case "person":
		return c.person(ctx, args)
	case "send":
		return c.send(ctx, args)
	case "reply":
		return c.reply(ctx, args)
	case "inbox", "sent", "trash":
		return c.list(ctx, command, args)
	case "delete":
		return c.trash(ctx, args)
	case "untrash":
		return c.untrash(ctx, args)
	case "read":
		return c.read(ctx, args)
	case "replies":
		return c.replies(ctx, args)
	case "unread":
		return c.unread(ctx, args)
	case "search":
		return c.search(ctx, args)
	case "inspect":
		return c.inspect(ctx)
	case "help":
		printUsage(c.out)
		return nil
	default:
		printUsage(c.out)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	return fs
}

func (c *cli) person(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: person add|list", errUsage)
	}
	switch args[0] {
	case "add":
		fs := c.flags("person add")
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "unique email address")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		person, err := c.persons.Register(ctx, *name, *email)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, color.Green.Sprintf("Registered %s <%s> as %s", person.Name, person.Email, person.ID))
		return nil
	case "list":
		persons, err := c.persons.List(ctx)
		if err != nil {
			return err
		}
		table := newTable(c.out, "ID", "Name", "Email", "Last contacted")
		for _, p := range persons {
			table.Append([]string{p.ID.String(), p.Name, p.Email, formatTime(p.LastContactedAt)})
		}
		table.Render()
		return nil
	default:
		return fmt.Errorf("%w: unknown person command %q", errUsage, args[0])
	}
}

func (c *cli) send(ctx context.Context, args []string) error {
	fs := c.flags("send")
	from := fs.String("from", "", "sender email")
	to := fs.String("to", "", "recipient email")
	subject := fs.String("subject", "", "subject")
	content := fs.String("content", "", "content")
	parent := fs.String("parent", "", "id of the message answered")
	silent := fs.Bool("silent", false, "don't notify the recipient")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sender, err := c.persons.GetByEmail(ctx, *from)
	if err != nil {
		return err
	}
	recipient, err := c.persons.GetByEmail(ctx, *to)
	if err != nil {
		return err
	}
	var parentID *uuid.UUID
	if *parent != "" {
		id, err := parseID(*parent)
		if err != nil {
			return err
		}
		parentID = &id
	}

	message, err := c.messages.Create(ctx, services.CreateMessageCommand{
		Subject:          *subject,
		Content:          *content,
		SenderID:         sender.ID,
		RecipientID:      recipient.ID,
		ParentID:         parentID,
		SkipNotification: *silent,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("Message %s sent to %s", message.ID, recipient.Email))
	return nil
}

func (c *cli) reply(ctx context.Context, args []string) error {
	fs := c.flags("reply")
	from := fs.String("from", "", "sender email")
	parent := fs.String("parent", "", "id of the message answered")
	subject := fs.String("subject", "", "subject, derived from the parent when empty")
	content := fs.String("content", "", "content")
	silent := fs.Bool("silent", false, "don't notify the recipient")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sender, err := c.persons.GetByEmail(ctx, *from)
	if err != nil {
		return err
	}
	parentID, err := parseID(*parent)
	if err != nil {
		return err
	}
	message, err := c.messages.Reply(ctx, services.ReplyCommand{
		ParentID:         parentID,
		SenderID:         sender.ID,
		Subject:          *subject,
		Content:          *content,
		SkipNotification: *silent,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("Reply %s sent: %s", message.ID, message.Subject))
	return nil
}

func (c *cli) list(ctx context.Context, box string, args []string) error {
	fs := c.flags(box)
	as := fs.String("as", "", "email of the mailbox owner")
	cursor := fs.String("cursor", "", "cursor of the next page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	owner, err := c.persons.GetByEmail(ctx, *as)
	if err != nil {
		return err
	}

	list := map[string]func(context.Context, uuid.UUID, *string) ([]domain.Message, *string, error){
		"inbox": c.messages.Inbox,
		"sent":  c.messages.Sent,
		"trash": c.messages.TrashBox,
	}[box]
	messages, next, err := list(ctx, owner.ID, lo.EmptyableToPtr(*cursor))
	if err != nil {
		return err
	}
	return c.printMessages(ctx, messages, next)
}

func (c *cli) replies(ctx context.Context, args []string) error {
	fs := c.flags("replies")
	id := fs.String("id", "", "message id")
	cursor := fs.String("cursor", "", "cursor of the next page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	parentID, err := parseID(*id)
	if err != nil {
		return err
	}
	messages, next, err := c.messages.Replies(ctx, parentID, lo.EmptyableToPtr(*cursor))
	if err != nil {
		return err
	}
	return c.printMessages(ctx, messages, next)
}

// messageFlags parses the --as and --id flags shared by single message commands.
func (c *cli) messageFlags(ctx context.Context, name string, args []string) (domain.Person, uuid.UUID, error) {
	fs := c.flags(name)
	as := fs.String("as", "", "email of one party of the message")
	id := fs.String("id", "", "message id")
	if err := fs.Parse(args); err != nil {
		return domain.Person{}, uuid.Nil, err
	}
	person, err := c.persons.GetByEmail(ctx, *as)
	if err != nil {
		return domain.Person{}, uuid.Nil, err
	}
	messageID, err := parseID(*id)
	return person, messageID, err
}

func (c *cli) trash(ctx context.Context, args []string) error {
	person, id, err := c.messageFlags(ctx, "delete", args)
	if err != nil {
		return err
	}
	if _, err := c.messages.TrashFor(ctx, id, person.ID, time.Now().UTC()); err != nil {
		return err
	}
	fmt.Fprintln(c.out, color.Yellow.Sprintf("Message %s moved to the trash", id))
	return nil
}

func (c *cli) untrash(ctx context.Context, args []string) error {
	person, id, err := c.messageFlags(ctx, "untrash", args)
	if err != nil {
		return err
	}
	restored, err := c.messages.UntrashFor(ctx, id, person.ID)
	if err != nil {
		return err
	}
	if !restored {
		fmt.Fprintf(c.out, "Message %s is not in the trash\n", id)
		return nil
	}
	fmt.Fprintln(c.out, color.Green.Sprintf("Message %s restored", id))
	return nil
}

func (c *cli) read(ctx context.Context, args []string) error {
	person, id, err := c.messageFlags(ctx, "read", args)
	if err != nil {
		return err
	}
	message, err := c.messages.Read(ctx, id, person.ID)
	if err != nil {
		return err
	}
	names, err := c.names(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, color.Bold.Render(message.Subject))
	fmt.Fprintf(c.out, "From: %s\nTo:   %s\nDate: %s\n", names[message.SenderID], names[message.RecipientID], message.CreatedAt.Format(time.RFC1123))
	if message.ParentID != nil {
		fmt.Fprintf(c.out, "In reply to: %s\n", message.ParentID)
	}
	fmt.Fprintf(c.out, "\n%s\n", message.Content)
	return nil
}

func (c *cli) unread(ctx context.Context, args []string) error {
	fs := c.flags("unread")
	as := fs.String("as", "", "email of the mailbox owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	person, err := c.persons.GetByEmail(ctx, *as)
	if err != nil {
		return err
	}
	count, err := c.messages.UnreadCount(ctx, person.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, strconv.Itoa(count))
	return nil
}

func (c *cli) search(ctx context.Context, args []string) error {
	fs := c.flags("search")
	as := fs.String("as", "", "email of the mailbox owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	person, err := c.persons.GetByEmail(ctx, *as)
	if err != nil {
		return err
	}
	// Remaining arguments keep their own --in and --limit options.
	messages, err := c.messages.Search(ctx, person.ID, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	return c.printMessages(ctx, messages, nil)
}

func (c *cli) inspect(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/inspect", c.inspector)
	server := &http.Server{Addr: c.debugAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		c.log.Info("Store inspector available", "url", fmt.Sprintf("http://%s/inspect", c.debugAddr))
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("inspector server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (c *cli) names(ctx context.Context) (map[uuid.UUID]string, error) {
	persons, err := c.persons.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(persons, func(p domain.Person) (uuid.UUID, string) {
		return p.ID, fmt.Sprintf("%s <%s>", p.Name, p.Email)
	}), nil
}

func (c *cli) printMessages(ctx context.Context, messages []domain.Message, next *string) error {
	names, err := c.names(ctx)
	if err != nil {
		return err
	}
	table := newTable(c.out, "ID", "From", "To", "Subject", "Date", "Status")
	for _, m := range messages {
		table.Append([]string{
			m.ID.String(),
			names[m.SenderID],
			names[m.RecipientID],
			m.Subject,
			m.CreatedAt.Format(time.DateTime),
			status(m),
		})
	}
	table.Render()
	if next != nil {
		fmt.Fprintf(c.out, "More messages: --cursor %s\n", *next)
	}
	return nil
}

func status(m domain.Message) string {
	switch {
	case m.IsRepliedTo():
		return "replied"
	case m.IsRead():
		return "read"
	default:
		return "unread"
	}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid message id %q", errors.ErrValidation, s)
	}
	return id, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}
