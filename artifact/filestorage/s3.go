package filestorage

import (
	"errors"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// AWSS3 uploads finished artifacts into a caller-owned bucket.
// Credentials come from the standard AWS credential chain.
type AWSS3 struct {
	bucket   string
	uploader *s3manager.Uploader
	S3Client *s3.S3
}

// NewAWSS3 returns an S3 backend for the given region and bucket.
func NewAWSS3(region string, bucket string) (*AWSS3, error) {
	if region == "" || bucket == "" {
		return nil, errors.New("s3 backend needs both a region and a bucket")
	}
	s3Session, err := session.NewSession(&aws.Config{
		Region: aws.String(region)})
	if err != nil {
		return nil, err
	}

	return &AWSS3{
		bucket:   bucket,
		uploader: s3manager.NewUploader(s3Session),
		S3Client: s3.New(s3Session),
	}, nil
}

// StoreFile uploads srcpath to the bucket under destpath and then
// deletes srcpath.
func (b AWSS3) StoreFile(srcpath string, destpath string) error {
	f, err := os.Open(srcpath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = b.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(destpath),
		Body:   f,
	})
	if err != nil {
		return err
	}

	return os.Remove(srcpath)
}

// DeleteFile deletes filepath from the bucket.
func (b AWSS3) DeleteFile(filepath string) error {
	_, err := b.S3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filepath),
	})
	return err
}

// FileExists returns true if the object exists, false otherwise.
func (b AWSS3) FileExists(filepath string) bool {
	_, err := b.S3Client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(filepath),
	})
	return err == nil
}
