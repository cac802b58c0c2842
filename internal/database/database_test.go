package database

import (
	"context"
	"testing"
	"time"

	"github.com/example/hablabot/internal/apperr"
	"github.com/example/hablabot/pkg/models"
	"github.com/jmoiron/sqlx"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func registerUser(t *testing.T, db *sqlx.DB, id int64) {
	t.Helper()
	if err := NewUserRepository(db).Register(context.Background(), &models.User{ID: id, Name: "Ana", NotificationEnabled: true, NotificationHour: 9}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func seedLessons(t *testing.T, db *sqlx.DB, lessons ...models.Lesson) []models.Lesson {
	t.Helper()
	repo := NewLessonRepository(db)
	out := make([]models.Lesson, 0, len(lessons))
	for _, l := range lessons {
		l := l
		if _, err := repo.Upsert(context.Background(), &l); err != nil {
			t.Fatalf("Upsert lesson: %v", err)
		}
		out = append(out, l)
	}
	return out
}

func TestWeakAreaUpsertIncrements(t *testing.T) {
	db := openTestDB(t)
	repo := NewWeakAreaRepository(db)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	first, err := repo.Upsert(ctx, 7, models.AreaPronunciation, "rolled r", t1)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.OccurrenceCount != 1 || first.Addressed {
		t.Fatalf("new record: count=%d addressed=%v", first.OccurrenceCount, first.Addressed)
	}

	second, err := repo.Upsert(ctx, 7, models.AreaPronunciation, "rolled r", t2)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a duplicate row: %d vs %d", second.ID, first.ID)
	}
	if second.OccurrenceCount != 2 {
		t.Errorf("expected count 2, got %d", second.OccurrenceCount)
	}
	if !second.LastOccurred.Equal(t2) {
		t.Errorf("expected last_occurred %v, got %v", t2, second.LastOccurred)
	}

	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM weak_areas WHERE user_id = 7`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected exactly one row, got %d", n)
	}
}

func TestWeakAreaQueryTopOrdering(t *testing.T) {
	db := openTestDB(t)
	repo := NewWeakAreaRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	bump := func(item string, times int, last time.Time) {
		for i := 0; i < times; i++ {
			if _, err := repo.Upsert(ctx, 1, models.AreaVocabulary, item, last); err != nil {
				t.Fatalf("Upsert: %v", err)
			}
		}
	}
	bump("older five", 5, base.Add(1*time.Hour))
	bump("newer five", 5, base.Add(2*time.Hour))
	bump("three", 3, base.Add(3*time.Hour))
	bump("other user", 9, base)
	if _, err := repo.Upsert(ctx, 2, models.AreaVocabulary, "other user", base); err != nil {
		t.Fatal(err)
	}

	top, err := repo.QueryTop(ctx, 1, 2)
	if err != nil {
		t.Fatalf("QueryTop: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(top))
	}
	// "other user" for user 1 has count 9 and sorts first
	if top[0].SpecificItem != "other user" || top[1].SpecificItem != "newer five" {
		t.Errorf("unexpected order: %q, %q", top[0].SpecificItem, top[1].SpecificItem)
	}

	if err := repo.MarkAddressed(ctx, 1, models.AreaVocabulary, "other user"); err != nil {
		t.Fatalf("MarkAddressed: %v", err)
	}
	top, err = repo.QueryTop(ctx, 1, 10)
	if err != nil {
		t.Fatalf("QueryTop: %v", err)
	}
	want := []string{"newer five", "older five", "three"}
	if len(top) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(top))
	}
	for i, w := range want {
		if top[i].SpecificItem != w {
			t.Errorf("position %d: want %q got %q", i, w, top[i].SpecificItem)
		}
	}

	empty, err := repo.QueryTop(ctx, 99, 3)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result for unknown user, got %v err=%v", empty, err)
	}
}

func TestWeakAreaMarkAddressedIdempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewWeakAreaRepository(db)
	ctx := context.Background()

	created, err := repo.Upsert(ctx, 1, models.AreaGrammar, "ser vs estar", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	byID, err := repo.GetByID(ctx, 1, created.ID)
	if err != nil || byID.SpecificItem != "ser vs estar" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}
	if _, err := repo.GetByID(ctx, 2, created.ID); !apperr.IsNotFound(err) {
		t.Errorf("GetByID for another user err = %v, want NotFoundError", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.MarkAddressed(ctx, 1, models.AreaGrammar, "ser vs estar"); err != nil {
			t.Fatalf("MarkAddressed #%d: %v", i+1, err)
		}
	}
	wa, err := repo.Get(ctx, 1, models.AreaGrammar, "ser vs estar")
	if err != nil || wa == nil || !wa.Addressed {
		t.Fatalf("expected addressed record, got %+v err=%v", wa, err)
	}
	if err := repo.MarkAddressed(ctx, 1, models.AreaGrammar, "does not exist"); err != nil {
		t.Errorf("unknown key must be a no-op, got %v", err)
	}

	counts, err := repo.CountByType(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if counts[models.AreaGrammar] != 0 {
		t.Errorf("addressed items must not be counted, got %v", counts)
	}
}

func TestLessonFindEligible(t *testing.T) {
	db := openTestDB(t)
	lessons := seedLessons(t, db,
		models.Lesson{Level: models.LevelA1, OrderIndex: 2, Title: "Restaurant"},
		models.Lesson{Level: models.LevelA1, OrderIndex: 1, Title: "Greetings"},
		models.Lesson{Level: models.LevelA2, OrderIndex: 1, Title: "Plans"},
	)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	got, err := repo.FindEligible(ctx, models.LevelA1, nil)
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Greetings" || got[1].Title != "Restaurant" {
		t.Fatalf("unexpected eligible lessons: %+v", got)
	}

	got, err = repo.FindEligible(ctx, models.LevelA1, []string{lessons[1].ID})
	if err != nil {
		t.Fatalf("FindEligible: %v", err)
	}
	if len(got) != 1 || got[0].ID != lessons[0].ID {
		t.Fatalf("expected only Restaurant, got %+v", got)
	}

	if _, err := repo.GetByID(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestLessonUpsertKeepsID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLessonRepository(db)
	ctx := context.Background()

	l := models.Lesson{Level: models.LevelB1, OrderIndex: 1, Title: "Old"}
	created, err := repo.Upsert(ctx, &l)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	again := models.Lesson{Level: models.LevelB1, OrderIndex: 1, Title: "New"}
	created, err = repo.Upsert(ctx, &again)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	if again.ID != l.ID {
		t.Errorf("id changed on update: %s -> %s", l.ID, again.ID)
	}
	stored, err := repo.GetByID(ctx, l.ID)
	if err != nil || stored.Title != "New" {
		t.Fatalf("expected updated title, got %+v err=%v", stored, err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("expected 1 lesson, got %d", n)
	}
}

func TestUserLessonLifecycle(t *testing.T) {
	db := openTestDB(t)
	registerUser(t, db, 5)
	lessons := seedLessons(t, db, models.Lesson{Level: models.LevelA1, OrderIndex: 1, Title: "Greetings"})
	repo := NewUserLessonRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ul, err := repo.Open(ctx, 5, lessons[0].ID, now)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ul.Status != models.StatusInProgress {
		t.Errorf("expected in_progress, got %s", ul.Status)
	}

	if err := repo.Complete(ctx, 5, lessons[0].ID, 70, now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := repo.Complete(ctx, 5, lessons[0].ID, 90, now.Add(time.Hour)); err != nil {
		t.Fatalf("Complete again: %v", err)
	}
	// Opening a completed lesson must not downgrade it
	ul, err = repo.Open(ctx, 5, lessons[0].ID, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ul.Status != models.StatusCompleted || ul.Score == nil || *ul.Score != 90 {
		t.Errorf("unexpected row after re-completion: %+v", ul)
	}

	completed, err := repo.GetCompletedLessonIDs(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 1 || !completed[lessons[0].ID] {
		t.Errorf("unexpected completed set %v", completed)
	}
	rows, err := repo.ListByUser(ctx, 5)
	if err != nil || len(rows) != 1 {
		t.Errorf("expected one row, got %d err=%v", len(rows), err)
	}
}

func TestDailyProgressLastWriteWins(t *testing.T) {
	db := openTestDB(t)
	registerUser(t, db, 3)
	repo := NewDailyProgressRepository(db)
	ctx := context.Background()
	day := models.Day(time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC))

	for _, score := range []int{60, 80, 70} {
		if err := repo.RecordExercise(ctx, 3, day, score); err != nil {
			t.Fatalf("RecordExercise: %v", err)
		}
	}
	if err := repo.RecordExercise(ctx, 3, day.AddDate(0, 0, 1), 50); err != nil {
		t.Fatal(err)
	}

	rows, err := repo.ListSince(ctx, 3, day)
	if err != nil {
		t.Fatalf("ListSince: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 days, got %d", len(rows))
	}
	if rows[0].ExercisesCompleted != 3 || rows[0].SpeakingScore != 70 {
		t.Errorf("unexpected first day %+v", rows[0])
	}
	if rows[1].ExercisesCompleted != 1 || rows[1].SpeakingScore != 50 {
		t.Errorf("unexpected second day %+v", rows[1])
	}
}

func TestUserRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if _, err := repo.GetCurrentLevel(ctx, 1); !apperr.IsNotFound(err) {
		t.Fatalf("expected NotFoundError for unknown user, got %v", err)
	}
	registerUser(t, db, 1)
	if err := repo.SetLevel(ctx, 1, models.LevelB2); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	// Re-registering keeps the level
	registerUser(t, db, 1)
	lvl, err := repo.GetCurrentLevel(ctx, 1)
	if err != nil || lvl != models.LevelB2 {
		t.Fatalf("expected B2, got %q err=%v", lvl, err)
	}
	if err := repo.SetLevel(ctx, 1, models.Level("Z9")); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFoundError for bad level, got %v", err)
	}
	if err := repo.SetNotificationHour(ctx, 2, 10); !apperr.IsNotFound(err) {
		t.Errorf("expected NotFoundError for unknown user, got %v", err)
	}

	users, err := repo.GetUsersForNotification(ctx, 9)
	if err != nil || len(users) != 1 {
		t.Fatalf("expected one user to notify, got %d err=%v", len(users), err)
	}
	if err := repo.SetNotificationEnabled(ctx, 1, false); err != nil {
		t.Fatal(err)
	}
	users, _ = repo.GetUsersForNotification(ctx, 9)
	if len(users) != 0 {
		t.Errorf("disabled user must not be notified")
	}
}

func TestNewUserIsRemindedByDefault(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if err := repo.Register(ctx, models.NewUser(7, "u", "N")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	user, err := repo.GetByID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !user.NotificationEnabled || user.NotificationHour != models.DefaultNotificationHour {
		t.Errorf("enabled=%v hour=%d, want true/%d", user.NotificationEnabled, user.NotificationHour, models.DefaultNotificationHour)
	}
	users, err := repo.GetUsersForNotification(ctx, models.DefaultNotificationHour)
	if err != nil {
		t.Fatalf("GetUsersForNotification: %v", err)
	}
	if len(users) != 1 || users[0].ID != 7 {
		t.Errorf("users at default hour = %+v", users)
	}

	// registering again keeps a changed preference
	if err := repo.SetNotificationHour(ctx, 7, 18); err != nil {
		t.Fatal(err)
	}
	if err := repo.Register(ctx, models.NewUser(7, "u2", "N")); err != nil {
		t.Fatal(err)
	}
	if user, _ = repo.GetByID(ctx, 7); user.NotificationHour != 18 || user.Username != "u2" {
		t.Errorf("re-register: hour=%d username=%q", user.NotificationHour, user.Username)
	}
}

func TestConversationRepository(t *testing.T) {
	db := openTestDB(t)
	repo := NewConversationRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := repo.Start(ctx, 1, "restaurant", now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := repo.Start(ctx, 1, "", now.Add(time.Second))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	active, err := repo.GetActive(ctx, 1)
	if err != nil || active == nil || active.ID != second.ID {
		t.Fatalf("expected second session active, got %+v err=%v (first %s)", active, err, first.ID)
	}

	msgs := []models.ConversationMessage{{Role: "user", Content: "Hola"}, {Role: "assistant", Content: "¡Hola! ¿Qué tal?"}}
	if err := repo.SaveMessages(ctx, second.ID, msgs, now); err != nil {
		t.Fatal(err)
	}
	active, _ = repo.GetActive(ctx, 1)
	decoded, err := DecodeMessages(active)
	if err != nil || len(decoded) != 2 || decoded[1].Content != msgs[1].Content {
		t.Fatalf("unexpected messages %+v err=%v", decoded, err)
	}

	if err := repo.End(ctx, 1, now); err != nil {
		t.Fatal(err)
	}
	if active, _ := repo.GetActive(ctx, 1); active != nil {
		t.Errorf("expected no active session after End")
	}
}

func TestVocabularyRepository(t *testing.T) {
	db := openTestDB(t)
	registerUser(t, db, 4)
	repo := NewVocabularyRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	words := []models.VocabularyWord{{Spanish: "hola", English: "hello"}, {Spanish: " ", English: "blank"}, {Spanish: "gracias", English: "thanks"}}
	added, err := repo.AddWords(ctx, 4, words, "Greetings", now, 2.5)
	if err != nil || added != 2 {
		t.Fatalf("AddWords: added=%d err=%v", added, err)
	}
	added, err = repo.AddWords(ctx, 4, words[:1], "Greetings", now, 2.5)
	if err != nil || added != 0 {
		t.Fatalf("duplicate words must be skipped: added=%d err=%v", added, err)
	}

	items, err := repo.ListByUser(ctx, 4)
	if err != nil || len(items) != 2 {
		t.Fatalf("ListByUser: %d err=%v", len(items), err)
	}
	item := items[0]
	item.IntervalDays = 6
	item.ReviewCount = 2
	item.NextReview = now.AddDate(0, 0, 6)
	if err := repo.UpdateSchedule(ctx, &item); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	got, err := repo.GetByID(ctx, 4, item.ID)
	if err != nil || got.IntervalDays != 6 || got.ReviewCount != 2 {
		t.Fatalf("unexpected stored item %+v err=%v", got, err)
	}
	if _, err := repo.GetByID(ctx, 5, item.ID); !apperr.IsNotFound(err) {
		t.Errorf("other users must not see the item, got %v", err)
	}
}
