package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hikarium/go-shop-fulfillment/internal/aws"
	"golang.org/x/crypto/bcrypt"
)

const userIndex = "user_id-index"

// ErrEmailTaken indicates a registration against an existing email.
var ErrEmailTaken = errors.New("email already registered")

// Store encapsulates operations on the users table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a users Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// HashPassword bcrypt-hashes a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Create registers a user, stamping its timestamps. ErrEmailTaken if the
// email already exists.
func (s *Store) Create(ctx context.Context, user *User) error {
	now := s.nowFunc()
	user.CreatedAt = now
	user.UpdatedAt = now

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(email)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrEmailTaken
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by email. Returns (nil, nil) if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// GetByID looks a user up through the user_id index. Returns (nil, nil) if
// not found.
func (s *Store) GetByID(ctx context.Context, userID string) (*User, error) {
	idx := userIndex
	out, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &idx,
		KeyConditionExpression: awsString("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

// UpdateProfile applies the non-nil fields of upd to the user record. The
// SET clause is assembled from the explicit enumeration below; there is no
// iteration over caller-supplied keys.
func (s *Store) UpdateProfile(ctx context.Context, email string, upd ProfileUpdate) error {
	var sets []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	add := func(attr string, v *string) {
		if v == nil {
			return
		}
		ph := fmt.Sprintf("#f%d", len(sets))
		val := fmt.Sprintf(":v%d", len(sets))
		names[ph] = attr
		values[val] = &types.AttributeValueMemberS{Value: *v}
		sets = append(sets, ph+" = "+val)
	}

	add("name", upd.Name)
	add("phone", upd.Phone)
	add("bio", upd.Bio)
	add("twitter_handle", upd.TwitterHandle)
	add("instagram_handle", upd.InstagramHandle)
	add("facebook_url", upd.FacebookURL)
	add("youtube_url", upd.YoutubeURL)
	add("tiktok_handle", upd.TiktokHandle)
	add("linkedin_url", upd.LinkedinURL)
	add("website_url", upd.WebsiteURL)

	if len(sets) == 0 {
		return nil
	}
	names["#ua"] = "updated_at"
	values[":ua"] = &types.AttributeValueMemberS{Value: s.nowFunc().Format(time.RFC3339)}
	sets = append(sets, "#ua = :ua")

	expr := "SET " + strings.Join(sets, ", ")
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(email)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }
