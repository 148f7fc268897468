// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"strings"

	"scrawl/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

var tagPool = []string{
	"golang", "webdev", "databases", "devops", "testing", "cloud", "linux",
	"frontend", "backend", "security", "performance", "opinion", "tutorial",
	"career", "tooling", "architecture",
}

// Seeder seeds the database with realistic test data.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
}

// NewSeeder creates a seeder. Pass a fixed seed for reproducible runs.
func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	return &Seeder{db: db, faker: gofakeit.New(randSeed)}
}

// ClearAll truncates all seeded tables.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE votes, comments, posts, users RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

// Seed populates the database with test data
func (s *Seeder) Seed(opts Options) error {
	log.Printf("🌱 Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Println("⚠️  Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d test users created", len(users))

	posts, err := s.createPosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	comments, err := s.createComments(users, posts)
	if err != nil {
		return fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ %d comments created", len(comments))

	votes, err := s.createVotes(users, posts, comments)
	if err != nil {
		return fmt.Errorf("failed to create votes: %w", err)
	}
	log.Printf("✓ %d votes created", votes)

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

func (s *Seeder) createUsers(n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	seen := map[string]bool{}
	for len(users) < n {
		username := s.generateUsername()
		if seen[username] {
			continue
		}
		seen[username] = true

		user := models.User{
			Username: username,
			Email:    username + "@example.com",
			Password: string(hashed),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	// First user gets admin for analytics testing.
	if len(users) > 0 {
		if err := s.db.Model(&users[0]).Update("is_admin", true).Error; err != nil {
			return nil, err
		}
		users[0].IsAdmin = true
	}
	return users, nil
}

func (s *Seeder) createPosts(users []models.User, n int) ([]models.Post, error) {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		post := models.Post{
			Title:    strings.TrimSuffix(s.faker.Sentence(6), "."),
			Content:  s.faker.Paragraph(1, 4, 10, " "),
			Tags:     s.pickTags(),
			AuthorID: author.ID,
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) createComments(users []models.User, posts []models.Post) ([]models.Comment, error) {
	var comments []models.Comment
	for _, post := range posts {
		for i := 0; i < s.faker.Number(0, 3); i++ {
			author := users[s.faker.Number(0, len(users)-1)]
			comment := models.Comment{
				Content:  s.faker.Sentence(s.faker.Number(5, 15)),
				AuthorID: author.ID,
				PostID:   post.ID,
			}
			if err := s.db.Create(&comment).Error; err != nil {
				return nil, err
			}
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

// createVotes inserts vote rows and bumps the matching counters so the
// denormalized totals stay consistent with the vote table.
func (s *Seeder) createVotes(users []models.User, posts []models.Post, comments []models.Comment) (int, error) {
	total := 0
	cast := func(userID, targetID uint, targetType models.TargetType) error {
		voteType := models.VoteUp
		if s.faker.Number(0, 3) == 0 {
			voteType = models.VoteDown
		}
		vote := models.Vote{
			UserID:     userID,
			TargetID:   targetID,
			TargetType: targetType,
			VoteType:   voteType,
		}
		if err := s.db.Create(&vote).Error; err != nil {
			return err
		}

		table := "posts"
		if targetType == models.TargetComment {
			table = "comments"
		}
		column := "upvotes"
		if voteType == models.VoteDown {
			column = "downvotes"
		}
		if err := s.db.Exec(
			fmt.Sprintf("UPDATE %s SET %s = %s + 1 WHERE id = ?", table, column, column),
			targetID,
		).Error; err != nil {
			return err
		}
		total++
		return nil
	}

	for _, post := range posts {
		for _, user := range users {
			if s.faker.Number(0, 2) != 0 {
				continue
			}
			if err := cast(user.ID, post.ID, models.TargetPost); err != nil {
				return total, err
			}
		}
	}
	for _, comment := range comments {
		for _, user := range users {
			if s.faker.Number(0, 5) != 0 {
				continue
			}
			if err := cast(user.ID, comment.ID, models.TargetComment); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (s *Seeder) generateUsername() string {
	name := strings.ToLower(s.faker.Username())
	if s.faker.Number(0, 1) == 0 {
		name = fmt.Sprintf("%s%d", name, s.faker.Number(0, 999))
	}
	return name
}

func (s *Seeder) pickTags() []string {
	n := s.faker.Number(1, 3)
	tags := make([]string, 0, n)
	seen := map[string]bool{}
	for len(tags) < n {
		tag := tagPool[s.faker.Number(0, len(tagPool)-1)]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
