package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jacksund/warden/internal/domain"
	"github.com/jacksund/warden/internal/executor"
	"github.com/jacksund/warden/internal/mq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
)

// NewWorkCmd создаёт группу команд для управления очередью работы.
func NewWorkCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Manage the work queue",
	}

	cmd.AddCommand(
		newWorkSubmitCmd(deps),
		newWorkPendingCmd(deps),
		newWorkStatsCmd(deps),
		newWorkRecentCmd(deps),
		newWorkShowCmd(deps),
		newWorkCancelCmd(deps),
		newWorkPurgeCmd(deps),
		newWorkWatchCmd(deps),
	)

	return cmd
}

func newWorkSubmitCmd(deps *Deps) *cobra.Command {
	var pf payloadFlags
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit work to the queue",
		Example: `  warden work submit --fn echo --args '{"msg":"hi"}'
  warden work submit --command "bash run.sh" --dir /scratch/job42 --handler oom-fix --wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := deps.Output()

			payload, err := pf.build()
			if err != nil {
				return err
			}

			items, err := deps.Items(ctx)
			if err != nil {
				return err
			}

			// Подсказка worker'ам необязательна: без брокера работу
			// доберёт поллинг.
			var publisher *mq.Publisher
			if conn, err := deps.ConnectMQ(); err == nil {
				publisher = mq.NewPublisher(conn, discardLogger())
			} else {
				out.Info("broker unavailable, workers will pick this up by polling")
			}

			exec := executor.New(executor.Config{
				Store:     items,
				Publisher: publisher,
				Logger:    discardLogger(),
			})

			fut, err := exec.SubmitPayload(ctx, payload)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Submitted work item %s", fut.ID()))

			if !wait {
				if out.jsonMode {
					out.JSON(map[string]any{"item_id": fut.ID()})
				}
				return nil
			}

			value, err := fut.Result(ctx, timeout, 0)
			if err != nil {
				return fmt.Errorf("wait for result: %w", err)
			}
			out.JSON(value)
			return nil
		},
	}

	addPayloadFlags(cmd, &pf)
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the item finishes and print its result")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 = wait forever)")

	return cmd
}

func newWorkPendingCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show the number of pending work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			n, err := items.CountPending(cmd.Context())
			if err != nil {
				return err
			}

			deps.Output().Print(
				[]string{"PENDING"},
				[][]string{{strconv.Itoa(n)}},
				map[string]int{"pending": n},
			)
			return nil
		},
	}
}

func newWorkStatsCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show work item counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			counts, err := items.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}

			order := []domain.Status{
				domain.StatusPending,
				domain.StatusRunning,
				domain.StatusFinished,
				domain.StatusCanceled,
			}
			rows := make([][]string, len(order))
			for i, st := range order {
				rows[i] = []string{st.String(), strconv.Itoa(counts[st])}
			}

			deps.Output().Print([]string{"STATUS", "COUNT"}, rows, counts)
			return nil
		},
	}
}

func newWorkRecentCmd(deps *Deps) *cobra.Command {
	var since time.Duration
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently updated work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			list, err := items.ListRecent(cmd.Context(), time.Now().Add(-since), limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "KIND", "STATUS", "CLAIMED_BY", "CREATED", "UPDATED"}
			rows := make([][]string, len(list))
			for i, item := range list {
				rows[i] = []string{
					item.ID.String(),
					payloadSummary(item.Payload),
					item.Status.String(),
					item.ClaimedBy,
					item.CreatedAt.Format(time.RFC3339),
					item.UpdatedAt.Format(time.RFC3339),
				}
			}

			deps.Output().Print(headers, rows, list)
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Look back this far")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of results")

	return cmd
}

func newWorkShowCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show work item details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid work item id %q: %w", args[0], err)
			}

			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			item, err := items.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			pairs := [][2]string{
				{"ID", item.ID.String()},
				{"KIND", payloadSummary(item.Payload)},
				{"STATUS", item.Status.String()},
				{"CLAIMED BY", item.ClaimedBy},
				{"CREATED", item.CreatedAt.Format(time.RFC3339)},
			}
			if item.ClaimedAt != nil {
				pairs = append(pairs, [2]string{"CLAIMED", item.ClaimedAt.Format(time.RFC3339)})
			}
			if item.FinishedAt != nil {
				pairs = append(pairs,
					[2]string{"FINISHED", item.FinishedAt.Format(time.RFC3339)},
					[2]string{"DURATION", item.Duration().String()},
				)
			}
			if item.Result != nil {
				if item.Result.OK {
					pairs = append(pairs, [2]string{"RESULT", "ok"})
					if len(item.Result.Value) > 0 {
						pairs = append(pairs, [2]string{"VALUE", string(item.Result.Value)})
					}
				} else {
					pairs = append(pairs,
						[2]string{"RESULT", "error"},
						[2]string{"ERROR KIND", item.Result.Error.Kind},
						[2]string{"ERROR", item.Result.Error.Message},
					)
					for _, c := range item.Result.Error.Corrections {
						pairs = append(pairs, [2]string{"CORRECTION", c.Handler + ": " + c.Description})
					}
				}
			}

			deps.Output().PrintKV(pairs, item)
			return nil
		},
	}
}

func newWorkCancelCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a pending work item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid work item id %q: %w", args[0], err)
			}

			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			ok, err := items.Cancel(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := deps.Output()
			if ok {
				out.Success(fmt.Sprintf("Work item cancelled: %s", id))
			} else {
				// Отмена кооперативная: захваченный или завершённый
				// item остаётся как есть.
				out.Info(fmt.Sprintf("Work item %s was not cancelled (already claimed or finished)", id))
			}
			return nil
		},
	}
}

func newWorkPurgeCmd(deps *Deps) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete finished and cancelled work items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := deps.Items(cmd.Context())
			if err != nil {
				return err
			}

			var deleted int64
			if all {
				deleted, err = items.DeleteAll(cmd.Context())
			} else {
				deleted, err = items.DeleteFinished(cmd.Context())
			}
			if err != nil {
				return err
			}

			deps.Output().Success(fmt.Sprintf("Deleted %d work items", deleted))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Delete every item, including pending and running")

	return cmd
}

func newWorkWatchCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream work.finished events from the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := deps.Output()

			conn, err := deps.ConnectMQ()
			if err != nil {
				return err
			}
			if err := mq.SetupTopology(conn); err != nil {
				return err
			}

			deliveries, err := bindWatchQueue(conn)
			if err != nil {
				return err
			}

			out.Info("watching for finished work, Ctrl-C to stop")
			for {
				select {
				case <-ctx.Done():
					return nil
				case raw, ok := <-deliveries:
					if !ok {
						return fmt.Errorf("broker connection lost")
					}
					printFinishedEvent(out, raw.Body)
				}
			}
		},
	}
}

// bindWatchQueue объявляет эксклюзивную анонимную очередь на события
// finished: у каждого watch своя копия потока, с worker'ами и другими
// наблюдателями он не конкурирует.
func bindWatchQueue(conn *mq.Connection) (<-chan amqp.Delivery, error) {
	ch := conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no amqp channel available")
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare watch queue: %w", err)
	}
	err = ch.QueueBind(q.Name, string(mq.RoutingKeyFinished), string(mq.ExchangeWork), false, nil)
	if err != nil {
		return nil, fmt.Errorf("bind watch queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume watch queue: %w", err)
	}
	return deliveries, nil
}

func printFinishedEvent(out *Output, body []byte) {
	var msg mq.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		out.Error(fmt.Sprintf("malformed event: %v", err))
		return
	}
	payload, err := mq.ParsePayload[mq.WorkFinishedPayload](&msg)
	if err != nil {
		out.Error(fmt.Sprintf("malformed event payload: %v", err))
		return
	}

	if out.jsonMode {
		out.JSON(payload)
		return
	}
	status := "ok"
	if !payload.OK {
		status = "error (" + payload.Kind + ")"
	}
	out.Success(fmt.Sprintf("%s  %s  %s", msg.Timestamp.Format(time.RFC3339), payload.ItemID, status))
}

// payloadSummary — короткое описание payload для таблиц.
func payloadSummary(p domain.Payload) string {
	switch p.Kind {
	case domain.PayloadKindFunction:
		return "fn:" + p.Function.Name
	case domain.PayloadKindProcess:
		return "process"
	default:
		return p.Kind
	}
}
