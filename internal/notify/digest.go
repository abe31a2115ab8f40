package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// RunDigest delivers every due digest batch: all pending items for a
// recipient become one email, sent once, then marked sent so a rerun never
// redelivers them. Called from the daily scheduled trigger.
func (d *Dispatcher) RunDigest(ctx context.Context) (usersProcessed, itemsSent int, errs []string) {
	now := d.now()

	userIDs, err := d.store.ListDigestUsersDue(ctx, now)
	if err != nil {
		return 0, 0, []string{fmt.Sprintf("list due digests: %v", err)}
	}

	for _, userID := range userIDs {
		items, err := d.store.ListPendingDigestItems(ctx, userID, now)
		if err != nil {
			errs = append(errs, fmt.Sprintf("digest items for user %d: %v", userID, err))
			continue
		}
		if len(items) == 0 {
			continue
		}

		user, err := d.users.Get(ctx, userID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("digest recipient %d: %v", userID, err))
			continue
		}

		subject := fmt.Sprintf("Daily digest: %d notifications", len(items))
		var b strings.Builder
		ids := make([]int, 0, len(items))
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n  %s\n", item.Title, item.Body)
			ids = append(ids, item.ID)
		}

		if err := d.email.Send(ctx, user.Email, subject, b.String()); err != nil {
			// Items stay pending and ride along on the next digest run.
			errs = append(errs, fmt.Sprintf("digest email to user %d: %v", userID, err))
			continue
		}

		if err := d.store.MarkDigestItemsSent(ctx, ids); err != nil {
			errs = append(errs, fmt.Sprintf("mark digest sent for user %d: %v", userID, err))
			continue
		}
		usersProcessed++
		itemsSent += len(items)
	}

	log.Printf("[Notify] digest run delivered %d items to %d users", itemsSent, usersProcessed)
	return usersProcessed, itemsSent, errs
}
