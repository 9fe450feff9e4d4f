package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subtrack/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection  = "users"
	ledgerCollection = "reminder_ledger"

	mongoConnectAttempts = 3
	mongoRetryInterval   = 2 * time.Second
)

var ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")

// NewMongoDatabase connects to MongoDB, retrying transient failures, and returns the named database.
func NewMongoDatabase(ctx context.Context, url, database string) (*mongo.Database, error) {
	var lastErr error
	for range mongoConnectAttempts {
		client, err := mongo.Connect(
			options.Client().
				ApplyURI(url).
				SetConnectTimeout(10 * time.Second).
				SetMaxConnIdleTime(5 * time.Minute).
				SetRetryWrites(true).
				SetRetryReads(true),
		)
		if err == nil {
			if err = client.Ping(ctx, nil); err == nil {
				return client.Database(database), nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnectToMongo, ctx.Err())
		case <-time.After(mongoRetryInterval):
		}
	}
	return nil, errors.Join(ErrFailedToConnectToMongo, lastErr)
}

// MongoStore keeps each user as one document with embedded subscriptions and calendar credential,
// the layout the account service historically used.
type MongoStore struct {
	users  *mongo.Collection
	ledger *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		users:  db.Collection(usersCollection),
		ledger: db.Collection(ledgerCollection),
	}
}

// EnsureIndexes creates the email uniqueness index and the subscription lookup index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "subscriptions.id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

type subscriptionDocument struct {
	ID              string    `bson:"id"`
	ServiceName     string    `bson:"service_name"`
	Cost            float64   `bson:"cost"`
	BillingCycle    string    `bson:"billing_cycle"`
	Category        string    `bson:"category"`
	NextPaymentDate time.Time `bson:"next_payment_date"`
	Description     string    `bson:"description"`
	IsActive        bool      `bson:"is_active"`
	IsRecurring     bool      `bson:"is_recurring"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

type googleAuthDocument struct {
	AccessToken  string    `bson:"access_token"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	Scope        string    `bson:"scope,omitempty"`
	TokenType    string    `bson:"token_type,omitempty"`
	Expiry       time.Time `bson:"expiry_date,omitempty"`
}

type preferencesDocument struct {
	EmailReminders bool                `bson:"email_reminders"`
	ReminderDays   int                 `bson:"reminder_days"`
	WeeklyDigest   bool                `bson:"weekly_digest"`
	MonthlyReport  bool                `bson:"monthly_report"`
	GoogleAuth     *googleAuthDocument `bson:"google_auth,omitempty"`
}

type userDocument struct {
	ID               string                 `bson:"_id"`
	Name             string                 `bson:"name"`
	Email            string                 `bson:"email"`
	PasswordHash     string                 `bson:"password_hash"`
	IsAdmin          bool                   `bson:"is_admin"`
	IsActive         bool                   `bson:"is_active"`
	RemindersEnabled bool                   `bson:"reminders_enabled"`
	LastLogin        *time.Time             `bson:"last_login,omitempty"`
	Preferences      preferencesDocument    `bson:"preferences"`
	Subscriptions    []subscriptionDocument `bson:"subscriptions"`
	CreatedAt        time.Time              `bson:"created_at"`
	UpdatedAt        time.Time              `bson:"updated_at"`
}

type ledgerDocument struct {
	SubscriptionID string    `bson:"_id"`
	UserID         string    `bson:"user_id"`
	EventID        string    `bson:"event_id"`
	HTMLLink       string    `bson:"html_link"`
	ScheduledAt    time.Time `bson:"scheduled_at"`
}

func toSubscriptionDocument(s *model.Subscription) subscriptionDocument {
	return subscriptionDocument{
		ID:              s.ID,
		ServiceName:     s.ServiceName,
		Cost:            s.Cost,
		BillingCycle:    string(s.BillingCycle),
		Category:        string(s.Category),
		NextPaymentDate: s.NextPaymentDate,
		Description:     s.Description,
		IsActive:        s.IsActive,
		IsRecurring:     s.IsRecurring,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func (d subscriptionDocument) model(userID string) model.Subscription {
	return model.Subscription{
		ID:              d.ID,
		UserID:          userID,
		ServiceName:     d.ServiceName,
		Cost:            d.Cost,
		BillingCycle:    model.BillingCycle(d.BillingCycle),
		Category:        model.Category(d.Category),
		NextPaymentDate: d.NextPaymentDate,
		Description:     d.Description,
		IsActive:        d.IsActive,
		IsRecurring:     d.IsRecurring,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func (d *userDocument) model() *model.User {
	u := &model.User{
		UserID:           d.ID,
		Name:             d.Name,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		IsAdmin:          d.IsAdmin,
		IsActive:         d.IsActive,
		RemindersEnabled: d.RemindersEnabled,
		LastLogin:        d.LastLogin,
		Preferences: model.UserPreferences{
			EmailReminders: d.Preferences.EmailReminders,
			ReminderDays:   d.Preferences.ReminderDays,
			WeeklyDigest:   d.Preferences.WeeklyDigest,
			MonthlyReport:  d.Preferences.MonthlyReport,
		},
		Subscriptions: make([]model.Subscription, 0, len(d.Subscriptions)),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, sd := range d.Subscriptions {
		u.Subscriptions = append(u.Subscriptions, sd.model(d.ID))
	}
	return u
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*userDocument, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	doc := userDocument{
		ID:               u.UserID,
		Name:             u.Name,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		IsAdmin:          u.IsAdmin,
		IsActive:         u.IsActive,
		RemindersEnabled: u.RemindersEnabled,
		LastLogin:        u.LastLogin,
		Preferences: preferencesDocument{
			EmailReminders: u.Preferences.EmailReminders,
			ReminderDays:   u.Preferences.ReminderDays,
			WeeklyDigest:   u.Preferences.WeeklyDigest,
			MonthlyReport:  u.Preferences.MonthlyReport,
		},
		Subscriptions: []subscriptionDocument{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user %s: %w", u.Email, err)
	}
	return nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := s.findUser(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.model(), nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	doc, err := s.findUser(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("fetch user by email: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.model(), nil
}

func (s *MongoStore) FindUserBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error) {
	doc, err := s.findUser(ctx, bson.M{"subscriptions.id": subscriptionID})
	if err != nil {
		return nil, fmt.Errorf("fetch user by subscription %s: %w", subscriptionID, err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.model(), nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]model.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]model.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].model())
	}
	return users, nil
}

func (s *MongoStore) updateUser(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (s *MongoStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if err := s.updateUser(ctx, id, bson.M{"last_login": at}); err != nil {
		return fmt.Errorf("update last login for user %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) UpdatePreferences(ctx context.Context, id string, prefs model.UserPreferences, remindersEnabled bool) error {
	err := s.updateUser(ctx, id, bson.M{
		"preferences.email_reminders": prefs.EmailReminders,
		"preferences.reminder_days":   prefs.ReminderDays,
		"preferences.weekly_digest":   prefs.WeeklyDigest,
		"preferences.monthly_report":  prefs.MonthlyReport,
		"reminders_enabled":           remindersEnabled,
	})
	if err != nil {
		return fmt.Errorf("update preferences for user %s: %w", id, err)
	}
	return nil
}

func (s *MongoStore) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.updateUser(ctx, id, bson.M{"is_active": active}); err != nil {
		return fmt.Errorf("set active=%t for user %s: %w", active, id, err)
	}
	return nil
}

func (s *MongoStore) SetAdmin(ctx context.Context, id string, admin bool) error {
	if err := s.updateUser(ctx, id, bson.M{"is_admin": admin}); err != nil {
		return fmt.Errorf("set admin=%t for user %s: %w", admin, id, err)
	}
	return nil
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete user %s: %w", id, err)
	}
	if _, err := s.ledger.DeleteMany(ctx, bson.M{"user_id": id}); err != nil {
		return false, fmt.Errorf("delete reminder ledger for user %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	now := time.Now().UTC()
	sub.CreatedAt, sub.UpdatedAt = now, now
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": sub.UserID},
		bson.M{"$push": bson.M{"subscriptions": toSubscriptionDocument(sub)}},
	)
	if err != nil {
		return fmt.Errorf("insert subscription for user %s: %w", sub.UserID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("insert subscription: user %s does not exist", sub.UserID)
	}
	return nil
}

func (s *MongoStore) GetSubscriptionByID(ctx context.Context, id string) (*model.Subscription, error) {
	u, err := s.FindUserBySubscriptionID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return u.FindSubscription(id), nil
}

func (s *MongoStore) ListByUser(ctx context.Context, userID string) ([]model.Subscription, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return []model.Subscription{}, nil
	}
	return u.Subscriptions, nil
}

func (s *MongoStore) UpdateSubscription(ctx context.Context, sub *model.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": sub.UserID, "subscriptions.id": sub.ID},
		bson.M{"$set": bson.M{"subscriptions.$": toSubscriptionDocument(sub)}},
	)
	if err != nil {
		return fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update subscription %s: not found", sub.ID)
	}
	return nil
}

func (s *MongoStore) DeleteSubscription(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "subscriptions.id": id},
		bson.M{"$pull": bson.M{"subscriptions": bson.M{"id": id}}},
	)
	if err != nil {
		return false, fmt.Errorf("delete subscription %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *MongoStore) GetCredential(ctx context.Context, userID string) (*model.CalendarCredential, error) {
	doc, err := s.findUser(ctx, bson.M{"_id": userID})
	if err != nil {
		return nil, fmt.Errorf("fetch calendar credential for user %s: %w", userID, err)
	}
	if doc == nil || doc.Preferences.GoogleAuth == nil {
		return nil, nil
	}
	g := doc.Preferences.GoogleAuth
	return &model.CalendarCredential{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		Scope:        g.Scope,
		TokenType:    g.TokenType,
		Expiry:       g.Expiry,
	}, nil
}

func (s *MongoStore) UpsertCredential(ctx context.Context, userID string, cred *model.CalendarCredential) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"preferences.google_auth": googleAuthDocument{
			AccessToken:  cred.AccessToken,
			RefreshToken: cred.RefreshToken,
			Scope:        cred.Scope,
			TokenType:    cred.TokenType,
			Expiry:       cred.Expiry,
		},
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("upsert calendar credential for user %s: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("upsert calendar credential: user %s does not exist", userID)
	}
	return nil
}

func (s *MongoStore) DeleteCredential(ctx context.Context, userID string) error {
	_, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$unset": bson.M{"preferences.google_auth": ""}})
	if err != nil {
		return fmt.Errorf("delete calendar credential for user %s: %w", userID, err)
	}
	return nil
}

func (s *MongoStore) Record(ctx context.Context, e *model.ReminderLedgerEntry) error {
	doc := ledgerDocument{
		SubscriptionID: e.SubscriptionID,
		UserID:         e.UserID,
		EventID:        e.EventID,
		HTMLLink:       e.HTMLLink,
		ScheduledAt:    e.ScheduledAt,
	}
	_, err := s.ledger.ReplaceOne(ctx, bson.M{"_id": e.SubscriptionID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("record reminder for subscription %s: %w", e.SubscriptionID, err)
	}
	return nil
}

func (s *MongoStore) Last(ctx context.Context, subscriptionID string) (*model.ReminderLedgerEntry, error) {
	var doc ledgerDocument
	if err := s.ledger.FindOne(ctx, bson.M{"_id": subscriptionID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch reminder ledger for subscription %s: %w", subscriptionID, err)
	}
	return &model.ReminderLedgerEntry{
		SubscriptionID: doc.SubscriptionID,
		UserID:         doc.UserID,
		EventID:        doc.EventID,
		HTMLLink:       doc.HTMLLink,
		ScheduledAt:    doc.ScheduledAt,
	}, nil
}

var (
	_ UserRepository           = (*MongoStore)(nil)
	_ SubscriptionRepository   = (*MongoStore)(nil)
	_ CredentialRepository     = (*MongoStore)(nil)
	_ ReminderLedgerRepository = (*MongoStore)(nil)
)
